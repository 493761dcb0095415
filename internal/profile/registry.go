package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Registry 是内置站点的只读注册表（按 name 索引）。
// 站点数量很小，map 足够；注册期完成 Normalize，取出的 Profile 直接可用。
type Registry struct {
	byName map[string]Profile
}

func NewRegistry(profiles ...Profile) (Registry, error) {
	byName := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		np, err := p.Normalize()
		if err != nil {
			return Registry{}, err
		}
		name := strings.ToLower(np.Name)
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 profile：%q", name)
		}
		byName[name] = np
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Profile, bool) {
	if r.byName == nil {
		return Profile{}, false
	}
	p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names 返回已注册站点名（字典序），用于 usage 输出。
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin 返回随仓库内置的站点配置。
// 新站点优先走 yaml（LoadFile）；只有长期维护的站点才提升为内置项。
func Builtin() (Registry, error) {
	return NewRegistry(
		Profile{
			Name:           "manhuaus",
			BaseURL:        "https://manhuaus.com",
			AdvancedSearch: true,
			LoadMoreSearch: true,
			PageImageQuery: "li.blocks-gallery-item > img",
		},
		Profile{
			Name:           "webtoon-xyz",
			BaseURL:        "https://www.webtoon.xyz",
			TraversalPath:  "read",
			HomePath:       "webtoons",
			LoadMoreSearch: true,
		},
		Profile{
			Name:           "mangatx",
			BaseURL:        "https://mangatx.com",
			LoadMoreSearch: true,
		},
		Profile{
			Name:             "hiperdex",
			BaseURL:          "https://hiperdex.com",
			AdvancedSearch:   true,
			LoadMoreSearch:   true,
			DisableUserAgent: true,
		},
		Profile{
			Name:           "akumanga",
			BaseURL:        "https://akumanga.com",
			Lang:           "ar",
			AdvancedSearch: true,
			LoadMoreSearch: true,
		},
		Profile{
			Name:           "aloalivn",
			BaseURL:        "https://aloalivn.com",
			AdvancedSearch: true,
			LoadMoreSearch: true,
			PageImageQuery: "li.blocks-gallery-item > figure > img",
		},
		Profile{
			Name:           "arangscans",
			BaseURL:        "https://arangscans.com",
			LoadMoreSearch: true,
			ChapterParam:   "?style=list",
		},
		Profile{
			Name:           "leviatanscans",
			BaseURL:        "https://leviatanscans.com",
			TraversalPath:  "comicss/manga",
			LoadMoreSearch: true,
		},
		Profile{
			Name:           "mangabob",
			BaseURL:        "https://mangabob.com",
			LoadMoreSearch: true,
		},
		Profile{
			Name:           "manhuaplus",
			BaseURL:        "https://manhuaplus.com",
			LoadMoreSearch: true,
		},
	)
}
