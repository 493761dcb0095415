package profile

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// 各字段的平台级默认值。绝大多数 Madara 站点用的就是模板原样的选择器，
// 只有少数站点需要在 Profile 里覆盖其中一两项。
const (
	DefaultTraversalPath    = "manga"
	DefaultHomePath         = "manga"
	DefaultListingTileQuery = "div.page-item-detail"
	DefaultSearchTileQuery  = "div.c-tabs-item__content"
	DefaultChapterRowQuery  = "li.wp-manga-chapter"
	DefaultPageImageQuery   = "div.page-break > img"
	DefaultTagMenuQuery     = ".second-menu .menu-item-object-wp-manga-genre a"
	DefaultTagCheckboxQuery = ".checkbox-group div label"
	DefaultPageSize         = 50
)

// Profile 是一个具体站点的全部配置。引擎是唯一消费方，整个调用期间只读。
//
// 约束：
// - 站点差异只允许表现为配置值，不引入新的类型层级
// - UserAgent 在构造期生成一次，调用中途不得更换（Cloudflare 对 UA 变化敏感）
type Profile struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	Lang    string `yaml:"lang"`

	// TraversalPath 是详情页 URL 中介于域名和标题 slug 之间的路径段。
	// 例：https://www.webtoon.xyz/read/limit-breaker/ 的 "read"。
	TraversalPath string `yaml:"traversal_path"`
	// HomePath 是目录页路径段（按最新排序分页浏览的入口）。
	HomePath string `yaml:"home_path"`

	ListingTileQuery string `yaml:"listing_tile_query"`
	SearchTileQuery  string `yaml:"search_tile_query"`
	ChapterRowQuery  string `yaml:"chapter_row_query"`
	PageImageQuery   string `yaml:"page_image_query"`

	PageSize int `yaml:"page_size"`

	// AdvancedSearch 为 true 时标签分类从高级搜索表单解析，否则从导航菜单解析。
	AdvancedSearch bool `yaml:"advanced_search"`
	// LoadMoreSearch 为 false 表示站点搜索页是独立分页按钮而非 LOAD MORE。
	LoadMoreSearch bool `yaml:"load_more_search"`

	// ChapterParam 是部分站点解析章节图片所必需的附加 query。
	// 例：ArangScans 需要 "?style=list" 才以列表形式输出图片。
	ChapterParam string `yaml:"chapter_param"`

	// UserAgent 为空时由 Normalize 生成随机 UA；要彻底关闭注入用 DisableUserAgent
	//（yaml 里空串和"没写"无法区分，所以关闭是独立开关）。
	UserAgent string `yaml:"user_agent"`
	// DisableUserAgent 为 true 时请求不带 UA 头（个别站点注入反而触发拦截）。
	DisableUserAgent bool `yaml:"disable_user_agent"`
}

// Normalize 填充默认值并做最小校验。返回的是副本，入参不被修改。
func (p Profile) Normalize() (Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if p.Name == "" {
		return Profile{}, errors.New("profile: name 不能为空")
	}
	if p.BaseURL == "" {
		return Profile{}, fmt.Errorf("profile %s: base_url 不能为空", p.Name)
	}
	if !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
		return Profile{}, fmt.Errorf("profile %s: base_url 必须带 scheme：%q", p.Name, p.BaseURL)
	}

	if p.Lang == "" {
		p.Lang = "en"
	}
	if p.TraversalPath == "" {
		p.TraversalPath = DefaultTraversalPath
	}
	if p.HomePath == "" {
		p.HomePath = DefaultHomePath
	}
	if p.ListingTileQuery == "" {
		p.ListingTileQuery = DefaultListingTileQuery
	}
	if p.SearchTileQuery == "" {
		p.SearchTileQuery = DefaultSearchTileQuery
	}
	if p.ChapterRowQuery == "" {
		p.ChapterRowQuery = DefaultChapterRowQuery
	}
	if p.PageImageQuery == "" {
		p.PageImageQuery = DefaultPageImageQuery
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.DisableUserAgent {
		p.UserAgent = ""
	} else if p.UserAgent == "" {
		p.UserAgent = RandomUserAgent()
	}
	return p, nil
}

// RandomUserAgent 生成带随机尾缀的 Firefox UA。
// 原型平台的经验值：固定前缀 + 随机数字对多数站点的 Cloudflare 评分更友好。
func RandomUserAgent() string {
	return fmt.Sprintf(
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:77.0) Gecko/20100101 Firefox/78.0%d",
		rand.Intn(100000),
	)
}
