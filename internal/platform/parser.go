package platform

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/madara/internal/domain"
	"github.com/John-Robertt/madara/internal/profile"
)

var (
	numericEntity = regexp.MustCompile(`&#(\d+);`)
	mangaIDInJS   = regexp.MustCompile(`"manga_id":"(\d+)"`)
	chapNumInHref = regexp.MustCompile(`chapter-\D*(\d*\.?\d*)`)
	chapterSuffix = regexp.MustCompile(`/chapter.*`)
)

// decodeEntities 解码数字字符引用（&#NNN; → 对应字符）。
// 站点只会吐这一种转义（WP 的 esc_html 产物），不引入完整的 HTML 实体表。
func decodeEntities(s string) string {
	return numericEntity.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(m[2 : len(m)-1])
		if err != nil || n < 0 || n > 0x10FFFF {
			return m
		}
		return string(rune(n))
	})
}

// imageSrc 按固定优先级解析一个 <img> 的真实地址：
// data-src → data-lazy-src → srcset 首个候选 → src。
// 懒加载属性优先，是因为 src 在懒加载站点上是占位图。
func imageSrc(sel *goquery.Selection) string {
	var image string
	if v, ok := sel.Attr("data-src"); ok {
		image = v
	} else if v, ok := sel.Attr("data-lazy-src"); ok {
		image = v
	} else if v, ok := sel.Attr("srcset"); ok {
		if fields := strings.Fields(v); len(fields) > 0 {
			image = fields[0]
		}
	} else {
		image, _ = sel.Attr("src")
	}
	image = decodeEntities(strings.TrimSpace(image))
	return strings.NewReplacer("\t", "", "\n", "").Replace(image)
}

// titleFromPath 把详情页/章节链接还原为标题 slug：
// 去掉 <base>/<traversal>/ 前缀和末尾的 "/"。
func titleFromPath(p profile.Profile, href string) string {
	href = strings.Replace(href, p.BaseURL+"/"+p.TraversalPath+"/", "", 1)
	return strings.TrimSuffix(href, "/")
}

// parseMangaDetails 把详情页组装为 Manga。
//
// 约束：数字 id 与封面图缺一即为 ExtractionError——后续所有 AJAX 请求都依赖
// 数字 id，而封面缺失意味着通用解析逻辑对这个站点已经失效。
func parseMangaDetails(doc *goquery.Document, p profile.Profile, mangaID string) (domain.Manga, error) {
	numericID := ""
	if m := mangaIDInJS.FindStringSubmatch(doc.Find("script#wp-manga-js-extra").Text()); m != nil {
		numericID = m[1]
	}
	if numericID == "" {
		// 兜底：部分站点不内联 manga_id，但收藏按钮上带 data-post。
		numericID = doc.Find("a.wp-manga-action-button").AttrOr("data-post", "")
	}
	if numericID == "" {
		return domain.Manga{}, &ExtractionError{Site: p.Name, Entity: "manga", Field: "id", ID: mangaID}
	}

	title := decodeEntities(doc.Find("div.post-title h1").First().Text())
	title = strings.NewReplacer("NEW", "", "HOT", "", "\n", "").Replace(title)
	title = strings.TrimSpace(title)

	author := cleanPersonField(doc.Find("div.author-content").First().Text())
	artist := cleanPersonField(doc.Find("div.artist-content").First().Text())

	desc := decodeEntities(doc.Find("div.description-summary").First().Text())
	desc = strings.TrimSpace(strings.Replace(desc, "Show more", "", 1))

	image := imageSrc(doc.Find("div.summary_image img").First())
	if image == "" {
		return domain.Manga{}, &ExtractionError{Site: p.Name, Entity: "manga", Field: "image", ID: mangaID}
	}

	ratingText := strings.Replace(doc.Find("span.total_votes").Text(), "Your Rating", "", 1)
	rating, _ := strconv.ParseFloat(strings.TrimSpace(ratingText), 64)

	status := domain.StatusCompleted
	lastItem := doc.Find("div.post-content_item").Last()
	if strings.EqualFold(strings.TrimSpace(lastItem.Find("div.summary-content").Text()), "ongoing") {
		status = domain.StatusOngoing
	}

	adult := doc.Find(".manga-title-badges.adult").Length() > 0
	var genres []domain.Tag
	doc.Find("div.genres-content a").Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Text())
		if strings.Contains(strings.ToLower(label), "smut") {
			adult = true
		}
		genres = append(genres, domain.Tag{ID: tagIDFromHref(s, label), Label: label})
	})

	return domain.Manga{
		ID:     numericID,
		Titles: []string{title},
		Image:  image,
		Author: author,
		Artist: artist,
		Desc:   desc,
		Rating: rating,
		Status: status,
		Adult:  adult,
		Tags:   []domain.TagSection{{ID: "0", Label: "genres", Tags: genres}},
	}, nil
}

// cleanPersonField 规范作者/画师文案：站点用 "Updating" 占位，统一替换为
// "Unknown"；整段缺失同样降级为 "Unknown" 而不是失败。
func cleanPersonField(s string) string {
	s = decodeEntities(strings.TrimSpace(strings.ReplaceAll(s, "\n", "")))
	s = strings.Replace(s, "Updating", "Unknown", 1)
	if s == "" {
		return "Unknown"
	}
	return s
}

func tagIDFromHref(s *goquery.Selection, fallback string) string {
	href, ok := s.Attr("href")
	if !ok {
		return fallback
	}
	// 形如 https://site/manga-genre/action/：第 4 段是路径派生的标识。
	parts := strings.Split(href, "/")
	if len(parts) > 4 && parts[4] != "" {
		return parts[4]
	}
	return fallback
}

// parseChapterList 把章节列表片段组装为 Chapter 集合（去重 + 升序）。
//
// 首行链接里的人类可读 slug 只用来校验列表确实属于该标题，不写进记录；
// 取不到 slug 说明返回的不是章节列表，整个调用失败。
func parseChapterList(doc *goquery.Document, p profile.Profile, mangaID string, now time.Time) ([]domain.Chapter, error) {
	rows := doc.Find(p.ChapterRowQuery)

	firstHref := rows.First().Find("a").First().AttrOr("href", "")
	realTitle := strings.ToLower(titleFromPath(p, firstHref))
	realTitle = chapterSuffix.ReplaceAllString(realTitle, "")
	if realTitle == "" {
		return nil, &ExtractionError{Site: p.Name, Entity: "chapters", Field: "title slug", ID: mangaID}
	}

	var chapters []domain.Chapter
	var rowErr error
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		link := row.Find("a").First()
		href := link.AttrOr("href", "")
		id := titleFromPath(p, href)
		if id == "" {
			rowErr = &ExtractionError{Site: p.Name, Entity: "chapters", Field: "id", ID: mangaID}
			return false
		}

		chapNum := 0.0
		parsed := false
		if m := chapNumInHref.FindStringSubmatch(strings.ToLower(href)); m != nil && m[1] != "" {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				chapNum = n
				parsed = true
			}
		}
		name := ""
		if !parsed {
			// 数字解析不出来：记 0，并保留显示文案作为章节名。
			name = strings.TrimSpace(link.Text())
		}

		release := ""
		if i := row.Find("i"); i.Length() > 0 {
			release = i.Text()
		} else {
			release = row.Find(".c-new-tag a").AttrOr("title", "")
		}

		chapters = append(chapters, domain.Chapter{
			ID:      id,
			MangaID: mangaID,
			Lang:    p.Lang,
			ChapNum: chapNum,
			Name:    name,
			Time:    ConvertTime(release, now),
		})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return sortChapters(chapters), nil
}

// sortChapters 按 ID 去重（保留首次出现），再按章节号稳定升序。
// 比较器非严格：章节号相同的行维持输入相对顺序。
func sortChapters(chapters []domain.Chapter) []domain.Chapter {
	seen := make(map[string]struct{}, len(chapters))
	out := make([]domain.Chapter, 0, len(chapters))
	for _, c := range chapters {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChapNum < out[j].ChapNum })
	return out
}

// parseChapterPages 提取一个章节的全部页面图片，保持文档顺序。
// 任何一页解析不出地址都是致命的：缺页的章节对阅读器没有意义。
func parseChapterPages(doc *goquery.Document, p profile.Profile, mangaID, chapterID string) (domain.PageList, error) {
	var pages []string
	var pageErr error
	doc.Find(p.PageImageQuery).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		page := imageSrc(img)
		if page == "" {
			pageErr = &ExtractionError{Site: p.Name, Entity: "pages", Field: "image", ID: mangaID + "/" + chapterID}
			return false
		}
		pages = append(pages, page)
		return true
	})
	if pageErr != nil {
		return domain.PageList{}, pageErr
	}
	return domain.PageList{ID: chapterID, MangaID: mangaID, Pages: pages}, nil
}

// parseTags 解析站点的分类标签。
// 有高级搜索页的站点从表单控件取 label/for；其余从导航菜单取 label + 路径标识。
func parseTags(doc *goquery.Document, p profile.Profile) []domain.TagSection {
	var genres []domain.Tag
	if p.AdvancedSearch {
		doc.Find(profile.DefaultTagCheckboxQuery).Each(func(_ int, s *goquery.Selection) {
			label := strings.TrimSpace(s.Text())
			genres = append(genres, domain.Tag{ID: s.AttrOr("for", label), Label: label})
		})
	} else {
		doc.Find(profile.DefaultTagMenuQuery).Each(func(_ int, s *goquery.Selection) {
			label := strings.TrimSpace(s.Text())
			genres = append(genres, domain.Tag{ID: tagIDFromHref(s, label), Label: label})
		})
	}
	return []domain.TagSection{{ID: "0", Label: "genres", Tags: genres}}
}

// parseSearchTiles 解析搜索结果片段。
// id 仍带完整域名的行（站外推广位）直接跳过；其余字段缺失按结构性失败处理。
func parseSearchTiles(doc *goquery.Document, p profile.Profile) ([]domain.Tile, error) {
	var tiles []domain.Tile
	var rowErr error
	doc.Find(p.SearchTileQuery).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		link := row.Find("a").First()
		id := titleFromPath(p, link.AttrOr("href", ""))
		title := decodeEntities(link.AttrOr("title", ""))
		image := imageSrc(row.Find("img").First())

		if id == "" || title == "" || image == "" {
			if strings.Contains(id, strings.TrimSuffix(p.BaseURL, "/")) {
				return true
			}
			rowErr = &ExtractionError{Site: p.Name, Entity: "search", Field: "tile", ID: p.SearchTileQuery}
			return false
		}
		tiles = append(tiles, domain.Tile{ID: id, Title: title, Image: image})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return tiles, nil
}

// parseListingTiles 解析目录/首页栏目片段（page-item-detail 行）。
func parseListingTiles(doc *goquery.Document, p profile.Profile) ([]domain.Tile, error) {
	var tiles []domain.Tile
	var rowErr error
	doc.Find(p.ListingTileQuery).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		image := imageSrc(row.Find("img").First())
		link := row.Find("h3.h5 a").First()
		title := decodeEntities(link.Text())
		id := titleFromPath(p, link.AttrOr("href", ""))

		if id == "" || title == "" || image == "" {
			rowErr = &ExtractionError{Site: p.Name, Entity: "listing", Field: "tile", ID: p.ListingTileQuery}
			return false
		}
		tiles = append(tiles, domain.Tile{ID: id, Title: title, Image: image})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return tiles, nil
}
