package platform

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// pageScan 是对"按最新更新排序"的一页档案流做行扫描的结果。
type pageScan struct {
	updated      []string // 本页命中 watch 集合、且更新时间晚于 cutoff 的 id
	rows         int      // 本页行数（续页安全界用）
	reachedSince bool     // 本页出现了 ≤ cutoff 的行
}

// scanListingPage 按文档顺序扫描一页。服务端保证 newest-first，
// 所以第一行 ≤ cutoff 之后的行必然更旧，直接停止本页扫描。
//
// 行的更新时间优先取闪烁 NEW 标的 title，否则取首个 chapter-item 的末个 span；
// 两处都没有时 ConvertTime 兜底为 now——宁可多报一行，不能漏报。
func scanListingPage(doc *goquery.Document, s *Source, since time.Time, watch map[string]struct{}, now time.Time) pageScan {
	var result pageScan
	doc.Find(s.Profile.ListingTileQuery).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		result.rows++

		id := titleFromPath(s.Profile, row.Find("h3.h5 a").First().AttrOr("href", ""))

		var updatedText string
		if newTag := row.Find(".c-new-tag a"); newTag.Length() > 0 {
			updatedText = newTag.AttrOr("title", "")
		} else {
			updatedText = row.Find(".chapter-item").First().Find("span").Last().Text()
		}

		rowTime := ConvertTime(strings.TrimSpace(updatedText), now)
		if !rowTime.After(since) {
			result.reachedSince = true
			return false
		}
		if _, ok := watch[id]; ok {
			result.updated = append(result.updated, id)
		}
		return true
	})
	return result
}

// FilterUpdatedManga 沿"最新更新"档案流增量扫描：报告 ids 中哪些标题
// 在 since 之后有更新。结果按页分批经 cb 交付（结果规模无上界，调用方要的
// 是增量进度，不是一次性集合）。
//
// 终止条件（满足其一即停）：
// - 某页出现了 ≤ since 的行（feed 时间单调递减，后面不可能再有新行）
// - 某页行数不足一页（安全界：目录太小，feed 永远到不了 cutoff）
// 不在 ids 里的标题即使更新了也绝不报告。
func (s *Source) FilterUpdatedManga(ctx context.Context, cb func(ids []string), since time.Time, ids []string) error {
	watch := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		watch[id] = struct{}{}
	}

	for page := 0; ; page++ {
		doc, err := s.fetchDoc(ctx, ajaxRequest(s.Profile, page, s.Profile.PageSize, metaKeyLatest, ""))
		if err != nil {
			return err
		}

		scan := scanListingPage(doc, s, since, watch, s.now())
		s.log.Debug("更新扫描翻页",
			zap.String("site", s.Profile.Name),
			zap.Int("page", page),
			zap.Int("rows", scan.rows),
			zap.Int("hits", len(scan.updated)),
			zap.Bool("reached_since", scan.reachedSince))

		if len(scan.updated) > 0 {
			cb(scan.updated)
		}
		if scan.reachedSince || scan.rows < s.Profile.PageSize {
			return nil
		}
	}
}
