package platform

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/John-Robertt/madara/internal/domain"
	"github.com/John-Robertt/madara/internal/profile"
)

// Source 是一个站点的抓取入口：Profile（只读配置）+ Fetcher（外部传输）。
//
// 约束：
// - 无跨调用状态。每次顶层调用自建分页状态，结束即弃，可被并发使用
// - 順序翻页：下一页是否请求取决于上一页的内容/行数，单次调用内不做并行翻页
//   （首页栏目是唯一例外，各栏目互不依赖，见 GetHomeSections）
type Source struct {
	Profile profile.Profile
	Fetcher Fetcher

	log *zap.Logger
	now func() time.Time
}

func NewSource(p profile.Profile, f Fetcher, log *zap.Logger) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	return &Source{Profile: p, Fetcher: f, log: log, now: time.Now}
}

// PageMetadata 是分页续取令牌：只携带下一页的页号（0 起）。
type PageMetadata struct {
	Page int
}

// PagedResults 是一页列表结果。Metadata 为 nil 表示没有下一页（本页未满）。
type PagedResults struct {
	Results  []domain.Tile
	Metadata *PageMetadata
}

// HomeSection 是首页的一个栏目。回调会先收到空栏目（让宿主先渲染骨架），
// 数据到位后再收到一次带 Items 的。
type HomeSection struct {
	ID       string
	Title    string
	Items    []domain.Tile
	ViewMore bool
}

// fetchDoc 发出请求并把响应体装载为可查询文档。
// 503 固定翻译成 ChallengeError；空 body 不算错误，装载出的空文档即"没有行"。
func (s *Source) fetchDoc(ctx context.Context, req *Request) (*goquery.Document, error) {
	resp, err := s.Fetcher.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status == 503 {
		return nil, &ChallengeError{Site: s.Profile.Name}
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
}

// GetMangaDetails 抓取并组装标题详情。
func (s *Source) GetMangaDetails(ctx context.Context, mangaID string) (domain.Manga, error) {
	req := &Request{
		Method:  "GET",
		URL:     s.Profile.BaseURL + "/" + s.Profile.TraversalPath + "/" + mangaID + "/",
		Headers: headersFor(s.Profile, nil),
	}
	doc, err := s.fetchDoc(ctx, req)
	if err != nil {
		return domain.Manga{}, err
	}
	return parseMangaDetails(doc, s.Profile, mangaID)
}

// GetChapters 抓取标题的章节列表（admin-ajax 的 manga_get_chapters 动作）。
// mangaID 是 GetMangaDetails 返回的数字 id。
func (s *Source) GetChapters(ctx context.Context, mangaID string) ([]domain.Chapter, error) {
	req := &Request{
		Method: "POST",
		URL:    s.Profile.BaseURL + "/wp-admin/admin-ajax.php",
		Headers: headersFor(s.Profile, map[string]string{
			"content-type": "application/x-www-form-urlencoded",
		}),
		Body: encodeForm([][2]string{
			{"action", "manga_get_chapters"},
			{"manga", mangaID},
		}),
	}
	doc, err := s.fetchDoc(ctx, req)
	if err != nil {
		return nil, err
	}
	chapters, err := parseChapterList(doc, s.Profile, mangaID, s.now())
	if err != nil {
		return nil, err
	}
	s.log.Debug("章节列表解析完成",
		zap.String("site", s.Profile.Name),
		zap.String("manga", mangaID),
		zap.Int("chapters", len(chapters)))
	return chapters, nil
}

// GetChapterDetails 抓取一个章节的页面图片。
// chapterID 是章节列表返回的相对路径（<slug>/chapter-N），直接拼回详情路径。
func (s *Source) GetChapterDetails(ctx context.Context, mangaID, chapterID string) (domain.PageList, error) {
	req := &Request{
		Method:  "GET",
		URL:     s.Profile.BaseURL + "/" + s.Profile.TraversalPath + "/" + chapterID + "/" + s.Profile.ChapterParam,
		Headers: headersFor(s.Profile, nil),
		Cookies: []Cookie{adultCookie(s.Profile)},
	}
	doc, err := s.fetchDoc(ctx, req)
	if err != nil {
		return domain.PageList{}, err
	}
	return parseChapterPages(doc, s.Profile, mangaID, chapterID)
}

// GetTags 抓取站点分类。有高级搜索页的站点从空搜索页取表单，否则取首页导航。
func (s *Source) GetTags(ctx context.Context) ([]domain.TagSection, error) {
	u := s.Profile.BaseURL + "/"
	if s.Profile.AdvancedSearch {
		u = s.Profile.BaseURL + "/?s=&post_type=wp-manga"
	}
	doc, err := s.fetchDoc(ctx, &Request{Method: "GET", URL: u, Headers: headersFor(s.Profile, nil)})
	if err != nil {
		return nil, err
	}
	return parseTags(doc, s.Profile), nil
}

// Search 执行一页免费文本搜索。metadata 为 nil 从第 0 页开始；
// 返回的 Metadata 非 nil 时用它续取下一页。
//
// 两条通路：LoadMoreSearch 站点走 admin-ajax；老式分页站点走搜索页 GET
//（/page/N/?s=…，页号 1 起）。两边的续页判定一致：满页才给令牌。
func (s *Source) Search(ctx context.Context, query string, metadata *PageMetadata) (PagedResults, error) {
	page := 0
	if metadata != nil {
		page = metadata.Page
	}

	var req *Request
	if s.Profile.LoadMoreSearch {
		req = ajaxRequest(s.Profile, page, s.Profile.PageSize, "", query)
	} else {
		req = &Request{
			Method:  "GET",
			URL:     fmt.Sprintf("%s/page/%d/?s=%s&post_type=wp-manga", s.Profile.BaseURL, page+1, url.QueryEscape(query)),
			Headers: headersFor(s.Profile, nil),
		}
	}
	doc, err := s.fetchDoc(ctx, req)
	if err != nil {
		return PagedResults{}, err
	}
	tiles, err := parseSearchTiles(doc, s.Profile)
	if err != nil {
		return PagedResults{}, err
	}
	s.log.Debug("搜索页解析完成",
		zap.String("site", s.Profile.Name),
		zap.Int("page", page),
		zap.Int("rows", len(tiles)))

	// 续页判定只看行数：满页才可能有下一页。"下一页"链接的标记太不可靠。
	var next *PageMetadata
	if len(tiles) >= s.Profile.PageSize {
		next = &PageMetadata{Page: page + 1}
	}
	return PagedResults{Results: tiles, Metadata: next}, nil
}

// homeSectionSpecs 固定三个首页栏目：榜单只是换一个排序键。
// metaKey 用于 admin-ajax 通路，orderby 用于老式 GET 分页通路。
var homeSectionSpecs = []struct {
	id, title, metaKey, orderby string
}{
	{"0", "RECENTLY UPDATED", metaKeyLatest, "latest"},
	{"1", "CURRENTLY TRENDING", metaKeyWeekViews, "trending"},
	{"2", "MOST POPULAR", metaKeyViews, "views"},
}

// GetHomeSections 抓取首页的固定栏目。
// 各栏目互不依赖，因此并发发出、全部汇合后返回；回调对每个栏目触发两次
// （先空壳后数据）。任何一个栏目失败，整个调用返回首个错误。
//
// 回调契约：空壳全部在任何取数开始之前、于调用方 goroutine 上发出；
// 数据回调来自各栏目的 goroutine，但持锁逐个发出；cb 绝不会被并发进入，
// 实现方无须自带同步。
func (s *Source) GetHomeSections(ctx context.Context, cb func(HomeSection)) error {
	for _, spec := range homeSectionSpecs {
		cb(HomeSection{ID: spec.id, Title: spec.title, ViewMore: true})
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, spec := range homeSectionSpecs {
		wg.Add(1)
		go func(section HomeSection, metaKey string) {
			defer wg.Done()
			doc, err := s.fetchDoc(ctx, ajaxRequest(s.Profile, 0, 10, metaKey, ""))
			if err == nil {
				section.Items, err = parseListingTiles(doc, s.Profile)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			cb(section)
		}(HomeSection{ID: spec.id, Title: spec.title, ViewMore: true}, spec.metaKey)
	}
	wg.Wait()
	return firstErr
}

// GetViewMoreItems 续取某个首页栏目的下一页（满页才给续取令牌，同 Search）。
func (s *Source) GetViewMoreItems(ctx context.Context, sectionID string, metadata *PageMetadata) (PagedResults, error) {
	var metaKey, orderby string
	for _, spec := range homeSectionSpecs {
		if spec.id == sectionID {
			metaKey, orderby = spec.metaKey, spec.orderby
		}
	}
	if metaKey == "" {
		return PagedResults{}, fmt.Errorf("未知的首页栏目：%q", sectionID)
	}

	page := 0
	if metadata != nil {
		page = metadata.Page
	}

	var req *Request
	if s.Profile.LoadMoreSearch {
		req = ajaxRequest(s.Profile, page, s.Profile.PageSize, metaKey, "")
	} else {
		req = &Request{
			Method:  "GET",
			URL:     fmt.Sprintf("%s/%s/page/%d/?m_orderby=%s", s.Profile.BaseURL, s.Profile.HomePath, page+1, orderby),
			Headers: headersFor(s.Profile, nil),
		}
	}
	doc, err := s.fetchDoc(ctx, req)
	if err != nil {
		return PagedResults{}, err
	}
	tiles, err := parseListingTiles(doc, s.Profile)
	if err != nil {
		return PagedResults{}, err
	}

	var next *PageMetadata
	if len(tiles) >= s.Profile.PageSize {
		next = &PageMetadata{Page: page + 1}
	}
	return PagedResults{Results: tiles, Metadata: next}, nil
}

// NumericID 从详情页的 shortlink 提取数字 id（独立于 GetMangaDetails 的轻量入口）。
func (s *Source) NumericID(ctx context.Context, mangaID string) (string, error) {
	req := &Request{
		Method:  "GET",
		URL:     s.Profile.BaseURL + "/" + s.Profile.TraversalPath + "/" + mangaID + "/",
		Headers: headersFor(s.Profile, nil),
	}
	doc, err := s.fetchDoc(ctx, req)
	if err != nil {
		return "", err
	}
	href := doc.Find(`link[rel="shortlink"]`).AttrOr("href", "")
	id := strings.Replace(href, s.Profile.BaseURL+"/?p=", "", 1)
	if href == "" || id == href || id == "" {
		return "", &ExtractionError{Site: s.Profile.Name, Entity: "manga", Field: "numeric id", ID: mangaID}
	}
	return id, nil
}
