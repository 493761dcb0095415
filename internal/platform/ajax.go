package platform

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/madara/internal/profile"
)

// admin-ajax 档案流的排序键。站点把统计值存在 WP post meta 里，
// 排序永远是 meta_value_num + desc，换键即换榜单。
const (
	metaKeyLatest    = "_latest_update"
	metaKeyWeekViews = "_wp_manga_week_views_value"
	metaKeyViews     = "_wp_manga_views"
)

const adultCookieName = "wpmanga-adault" // 模板自带的拼写错误，全平台一致

// ajaxRequest 构造发往 <base>/wp-admin/admin-ajax.php 的列表请求。
//
// 两种模式（由 searchQuery 是否为空切换）：
// - 搜索：template=content-search + vars[s]，不带排序
// - 档案：template=content-archive + meta_value_num 降序 + 指定 meta_key
//
// 约束：page 从 0 起；翻页只改 page，其余参数逐页保持不变。
func ajaxRequest(p profile.Profile, page, pageSize int, metaKey, searchQuery string) *Request {
	pairs := [][2]string{
		{"action", "madara_load_more"},
		{"page", strconv.Itoa(page)},
		{"vars[paged]", "1"},
		{"vars[posts_per_page]", strconv.Itoa(pageSize)},
	}
	if searchQuery != "" {
		pairs = append(pairs,
			[2]string{"vars[s]", searchQuery},
			[2]string{"template", "madara-core/content/content-search"},
		)
	} else {
		pairs = append(pairs,
			[2]string{"template", "madara-core/content/content-archive"},
			[2]string{"vars[orderby]", "meta_value_num"},
			[2]string{"vars[sidebar]", "right"},
			[2]string{"vars[post_type]", "wp-manga"},
			[2]string{"vars[meta_key]", metaKey},
			[2]string{"vars[order]", "desc"},
		)
	}

	return &Request{
		Method: "POST",
		URL:    p.BaseURL + "/wp-admin/admin-ajax.php",
		Headers: headersFor(p, map[string]string{
			"content-type": "application/x-www-form-urlencoded",
		}),
		Body:    encodeForm(pairs),
		Cookies: []Cookie{adultCookie(p)},
	}
}

// encodeForm 做 URL-form 编码：键和值都做百分号转义。
func encodeForm(pairs [][2]string) string {
	var b strings.Builder
	for i, kv := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[1]))
	}
	return b.String()
}

// headersFor 注入 Profile 级别的公共头：referer 固定指向站点根，
// UserAgent 非空才注入（空串表示该站点明确不要 UA）。
func headersFor(p profile.Profile, extra map[string]string) map[string]string {
	h := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		h[k] = v
	}
	h["referer"] = p.BaseURL
	if p.UserAgent != "" {
		h["user-agent"] = p.UserAgent
	}
	return h
}

func adultCookie(p profile.Profile) Cookie {
	return Cookie{Name: adultCookieName, Value: "1", Domain: p.BaseURL}
}
