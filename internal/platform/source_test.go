package platform

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureBytes(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join("testdata", name))
}

// fakeFetcher 记录所有请求，并按 respond 回调给出响应。
type fakeFetcher struct {
	mu       sync.Mutex
	requests []*Request
	respond  func(*Request) *Response
}

func (f *fakeFetcher) Do(_ context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req), nil
}

func htmlResponse(body string) *Response {
	return &Response{Status: 200, Body: []byte(body)}
}

func searchRow(id string) string {
	return fmt.Sprintf(`<div class="c-tabs-item__content">
		<div class="tab-thumb"><a href="https://example.com/manga/%s/" title="%s"><img data-src="https://cdn.example.com/%s.jpg"/></a></div>
	</div>`, id, id, id)
}

func searchPageHTML(n int) string {
	var rows []string
	for i := 0; i < n; i++ {
		rows = append(rows, searchRow(fmt.Sprintf("result-%d", i)))
	}
	return strings.Join(rows, "\n")
}

func TestSearch_FullPageYieldsContinuation(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse(searchPageHTML(50))
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	page, err := src.Search(context.Background(), "solo", nil)
	require.NoError(t, err)
	assert.Len(t, page.Results, 50)
	require.NotNil(t, page.Metadata, "满页必须携带续取令牌")
	assert.Equal(t, 1, page.Metadata.Page)

	// 拿令牌续取下一页：请求的 page 变量要跟上。
	_, err = src.Search(context.Background(), "solo", page.Metadata)
	require.NoError(t, err)

	require.Len(t, fetcher.requests, 2)
	form, err := url.ParseQuery(fetcher.requests[1].Body)
	require.NoError(t, err)
	assert.Equal(t, "1", form.Get("page"))
	assert.Equal(t, "solo", form.Get("vars[s]"))
	assert.Equal(t, "madara-core/content/content-search", form.Get("template"))
}

func TestSearch_ShortPageEndsPagination(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse(searchPageHTML(3))
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	page, err := src.Search(context.Background(), "solo", nil)
	require.NoError(t, err)
	assert.Len(t, page.Results, 3)
	assert.Nil(t, page.Metadata, "未满页不得给续取令牌")
}

func TestSearch_EmptyResultsNoContinuation(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse("")
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	page, err := src.Search(context.Background(), "nothing-matches", nil)
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.Nil(t, page.Metadata)
}

// 没有 LOAD MORE 端点的老式站点：搜索走分页 GET，页号从 1 起。
func TestSearch_LegacyPaginationFallback(t *testing.T) {
	p := testProfile(t)
	p.LoadMoreSearch = false
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse(searchPageHTML(50))
	}}
	src := NewSource(p, fetcher, nil)

	page, err := src.Search(context.Background(), "solo leveling", nil)
	require.NoError(t, err)
	require.NotNil(t, page.Metadata)

	_, err = src.Search(context.Background(), "solo leveling", page.Metadata)
	require.NoError(t, err)

	require.Len(t, fetcher.requests, 2)
	assert.Equal(t, "GET", fetcher.requests[0].Method)
	assert.Equal(t, "https://example.com/page/1/?s=solo+leveling&post_type=wp-manga", fetcher.requests[0].URL)
	assert.Equal(t, "https://example.com/page/2/?s=solo+leveling&post_type=wp-manga", fetcher.requests[1].URL)
}

func TestGetViewMoreItems_LegacyPaginationFallback(t *testing.T) {
	p := testProfile(t)
	p.LoadMoreSearch = false
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse(listingPageHTML([]string{listingRow("one", "2 hours ago")}))
	}}
	src := NewSource(p, fetcher, nil)

	_, err := src.GetViewMoreItems(context.Background(), "0", &PageMetadata{Page: 2})
	require.NoError(t, err)

	require.Len(t, fetcher.requests, 1)
	assert.Equal(t, "GET", fetcher.requests[0].Method)
	assert.Equal(t, "https://example.com/manga/page/3/?m_orderby=latest", fetcher.requests[0].URL)
}

func TestGetHomeSections_ConcurrentFanOut(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse(listingPageHTML([]string{listingRow("one", "2 hours ago")}))
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	var (
		mu       sync.Mutex
		sections []HomeSection
	)
	err := src.GetHomeSections(context.Background(), func(sec HomeSection) {
		mu.Lock()
		sections = append(sections, sec)
		mu.Unlock()
	})
	require.NoError(t, err)

	// 每个栏目两次回调：先空壳，后数据。
	require.Len(t, sections, 6)
	var emptyIDs, filledIDs []string
	for _, sec := range sections {
		assert.True(t, sec.ViewMore)
		if len(sec.Items) == 0 {
			emptyIDs = append(emptyIDs, sec.ID)
		} else {
			filledIDs = append(filledIDs, sec.ID)
			assert.Equal(t, "one", sec.Items[0].ID)
		}
	}
	sort.Strings(emptyIDs)
	sort.Strings(filledIDs)
	assert.Equal(t, []string{"0", "1", "2"}, emptyIDs)
	assert.Equal(t, []string{"0", "1", "2"}, filledIDs)

	// 三个栏目各发一个请求，排序键互不相同。
	require.Len(t, fetcher.requests, 3)
	keys := map[string]bool{}
	for _, req := range fetcher.requests {
		form, err := url.ParseQuery(req.Body)
		require.NoError(t, err)
		keys[form.Get("vars[meta_key]")] = true
		assert.Equal(t, "10", form.Get("vars[posts_per_page]"))
	}
	assert.Equal(t, map[string]bool{
		"_latest_update":             true,
		"_wp_manga_week_views_value": true,
		"_wp_manga_views":            true,
	}, keys)
}

// 回调契约：绝不并发进入，且三个空壳全部先于任何数据回调。
// 回调内故意不加锁，靠竞态检测器和进入计数共同验证。
func TestGetHomeSections_CallbackSerialized(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse(listingPageHTML([]string{listingRow("one", "2 hours ago")}))
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	var inFlight atomic.Int32
	var itemCounts []int
	err := src.GetHomeSections(context.Background(), func(sec HomeSection) {
		assert.Equal(t, int32(1), inFlight.Add(1), "回调被并发进入")
		time.Sleep(time.Millisecond)
		itemCounts = append(itemCounts, len(sec.Items))
		inFlight.Add(-1)
	})
	require.NoError(t, err)

	require.Len(t, itemCounts, 6)
	assert.Equal(t, []int{0, 0, 0}, itemCounts[:3], "空壳必须先于全部数据回调")
	assert.Equal(t, []int{1, 1, 1}, itemCounts[3:])
}

func TestGetHomeSections_SectionFailurePropagates(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return &Response{Status: 503}
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	var filled int
	err := src.GetHomeSections(context.Background(), func(sec HomeSection) {
		if len(sec.Items) > 0 {
			filled++
		}
	})
	var ce *ChallengeError
	require.ErrorAs(t, err, &ce)
	assert.Zero(t, filled, "失败的栏目不得触发数据回调")
}

func TestGetViewMoreItems_MapsSectionToMetaKey(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse(listingPageHTML([]string{listingRow("one", "2 hours ago")}))
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	page, err := src.GetViewMoreItems(context.Background(), "1", &PageMetadata{Page: 3})
	require.NoError(t, err)
	assert.Len(t, page.Results, 1)
	assert.Nil(t, page.Metadata)

	require.Len(t, fetcher.requests, 1)
	form, err := url.ParseQuery(fetcher.requests[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "_wp_manga_week_views_value", form.Get("vars[meta_key]"))
	assert.Equal(t, "3", form.Get("page"))
}

func TestGetViewMoreItems_UnknownSection(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		t.Fatal("未知栏目不应发请求")
		return nil
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	_, err := src.GetViewMoreItems(context.Background(), "99", nil)
	require.Error(t, err)
}

func TestGetChapters_RequestShape(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		b, err := fixtureBytes("chapters.html")
		require.NoError(t, err)
		return htmlResponse(string(b))
	}}
	src := NewSource(testProfile(t), fetcher, nil)
	src.now = func() time.Time { return time.Date(2021, 3, 14, 12, 0, 0, 0, time.UTC) }

	chapters, err := src.GetChapters(context.Background(), "87631")
	require.NoError(t, err)
	require.NotEmpty(t, chapters)

	require.Len(t, fetcher.requests, 1)
	req := fetcher.requests[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://example.com/wp-admin/admin-ajax.php", req.URL)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Headers["content-type"])
	form, err := url.ParseQuery(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "manga_get_chapters", form.Get("action"))
	assert.Equal(t, "87631", form.Get("manga"))
}

func TestGetChapterDetails_RequestShape(t *testing.T) {
	p := testProfile(t)
	p.ChapterParam = "?style=list"
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		b, err := fixtureBytes("pages.html")
		require.NoError(t, err)
		return htmlResponse(string(b))
	}}
	src := NewSource(p, fetcher, nil)

	pages, err := src.GetChapterDetails(context.Background(), "solo-leveling", "solo-leveling/chapter-11")
	require.NoError(t, err)
	assert.Len(t, pages.Pages, 3)

	require.Len(t, fetcher.requests, 1)
	req := fetcher.requests[0]
	assert.Equal(t, "https://example.com/manga/solo-leveling/chapter-11/?style=list", req.URL)
	require.Len(t, req.Cookies, 1)
	assert.Equal(t, "wpmanga-adault", req.Cookies[0].Name)
	assert.Equal(t, "1", req.Cookies[0].Value)
	assert.Equal(t, "https://example.com", req.Cookies[0].Domain)
}

func TestNumericID(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse(`<link rel="shortlink" href="https://example.com/?p=87631"/>`)
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	id, err := src.NumericID(context.Background(), "solo-leveling")
	require.NoError(t, err)
	assert.Equal(t, "87631", id)
}

func TestNumericID_MissingShortlink(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		return htmlResponse(`<html><head></head></html>`)
	}}
	src := NewSource(testProfile(t), fetcher, nil)

	_, err := src.NumericID(context.Background(), "solo-leveling")
	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "numeric id", ee.Field)
}

func TestGetTags_AdvancedSearchURL(t *testing.T) {
	p := testProfile(t)
	p.AdvancedSearch = true
	fetcher := &fakeFetcher{respond: func(*Request) *Response {
		b, err := fixtureBytes("tags_advanced.html")
		require.NoError(t, err)
		return htmlResponse(string(b))
	}}
	src := NewSource(p, fetcher, nil)

	sections, err := src.GetTags(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 1)

	require.Len(t, fetcher.requests, 1)
	assert.Equal(t, "https://example.com/?s=&post_type=wp-manga", fetcher.requests[0].URL)
}
