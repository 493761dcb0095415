package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_FillsDefaults(t *testing.T) {
	p, err := Profile{Name: "example", BaseURL: "https://example.com/"}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", p.BaseURL, "尾斜杠要剪掉")
	assert.Equal(t, "en", p.Lang)
	assert.Equal(t, DefaultTraversalPath, p.TraversalPath)
	assert.Equal(t, DefaultHomePath, p.HomePath)
	assert.Equal(t, DefaultListingTileQuery, p.ListingTileQuery)
	assert.Equal(t, DefaultSearchTileQuery, p.SearchTileQuery)
	assert.Equal(t, DefaultChapterRowQuery, p.ChapterRowQuery)
	assert.Equal(t, DefaultPageImageQuery, p.PageImageQuery)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.NotEmpty(t, p.UserAgent, "UA 缺省时随机生成")
}

func TestNormalize_KeepsOverrides(t *testing.T) {
	in := Profile{
		Name:           "webtoon-xyz",
		BaseURL:        "https://www.webtoon.xyz",
		Lang:           "ko",
		TraversalPath:  "read",
		HomePath:       "webtoons",
		PageSize:       20,
		PageImageQuery: "li.blocks-gallery-item > img",
		UserAgent:      "fixed-agent",
	}
	p, err := in.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "ko", p.Lang)
	assert.Equal(t, "read", p.TraversalPath)
	assert.Equal(t, "webtoons", p.HomePath)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, "li.blocks-gallery-item > img", p.PageImageQuery)
	assert.Equal(t, "fixed-agent", p.UserAgent)
}

func TestNormalize_DisableUserAgent(t *testing.T) {
	p, err := Profile{Name: "example", BaseURL: "https://example.com", DisableUserAgent: true}.Normalize()
	require.NoError(t, err)
	assert.Empty(t, p.UserAgent, "关闭注入的站点 UA 必须保持空串")

	// 显式给了 UA 也一样清掉：开关优先。
	p, err = Profile{Name: "example", BaseURL: "https://example.com", UserAgent: "x", DisableUserAgent: true}.Normalize()
	require.NoError(t, err)
	assert.Empty(t, p.UserAgent)
}

func TestNormalize_DoesNotMutateReceiver(t *testing.T) {
	in := Profile{Name: "example", BaseURL: "https://example.com"}
	_, err := in.Normalize()
	require.NoError(t, err)
	assert.Empty(t, in.Lang, "Normalize 返回副本，入参不变")
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name string
		in   Profile
	}{
		{"缺 name", Profile{BaseURL: "https://example.com"}},
		{"缺 base_url", Profile{Name: "example"}},
		{"base_url 无 scheme", Profile{Name: "example", BaseURL: "example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Normalize()
			assert.Error(t, err)
		})
	}
}

func TestRandomUserAgent(t *testing.T) {
	ua := RandomUserAgent()
	assert.True(t, strings.HasPrefix(ua, "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:77.0)"))
	assert.Contains(t, ua, "Firefox/78.0")
}

func TestRegistry_GetCaseInsensitive(t *testing.T) {
	reg, err := NewRegistry(Profile{Name: "Example", BaseURL: "https://example.com"})
	require.NoError(t, err)

	p, ok := reg.Get(" EXAMPLE ")
	require.True(t, ok)
	assert.Equal(t, "Example", p.Name)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicateName(t *testing.T) {
	_, err := NewRegistry(
		Profile{Name: "example", BaseURL: "https://example.com"},
		Profile{Name: "EXAMPLE", BaseURL: "https://example.org"},
	)
	assert.Error(t, err, "大小写只差的重名也要拒绝")
}

func TestRegistry_ZeroValueGet(t *testing.T) {
	var reg Registry
	_, ok := reg.Get("anything")
	assert.False(t, ok)
}

func TestBuiltin(t *testing.T) {
	reg, err := Builtin()
	require.NoError(t, err)

	names := reg.Names()
	assert.True(t, sortedStrings(names), "Names 必须是字典序")
	assert.Contains(t, names, "manhuaus")
	assert.Contains(t, names, "webtoon-xyz")

	// 抽查覆盖项随注册保留了下来。
	p, ok := reg.Get("arangscans")
	require.True(t, ok)
	assert.Equal(t, "?style=list", p.ChapterParam)

	p, ok = reg.Get("webtoon-xyz")
	require.True(t, ok)
	assert.Equal(t, "read", p.TraversalPath)
	assert.Equal(t, "webtoons", p.HomePath)

	p, ok = reg.Get("akumanga")
	require.True(t, ok)
	assert.Equal(t, "ar", p.Lang)

	p, ok = reg.Get("hiperdex")
	require.True(t, ok)
	assert.True(t, p.DisableUserAgent)
	assert.Empty(t, p.UserAgent, "该站点不注入 UA")
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return false
		}
	}
	return true
}

func TestLoadFile_MinimalYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: example\nbase_url: https://example.com\n"), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "example", p.Name)
	assert.Equal(t, DefaultPageSize, p.PageSize, "省略字段落到默认值")
}

func TestLoadFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"name: arangscans",
		"base_url: https://arangscans.com",
		"chapter_param: \"?style=list\"",
		"page_size: 25",
		"advanced_search: true",
	}, "\n")), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "?style=list", p.ChapterParam)
	assert.Equal(t, 25, p.PageSize)
	assert.True(t, p.AdvancedSearch)
}

func TestLoadFile_DisableUserAgent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noua.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"name: example",
		"base_url: https://example.com",
		"disable_user_agent: true",
	}, "\n")), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, p.UserAgent, "空 UA 必须在加载后存活，不得被随机值回填")
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, Code(err))
}

func TestLoadFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [not closed"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalid, Code(err))
}

func TestLoadFile_InvalidProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noscheme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: example\nbase_url: example.com\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalid, Code(err))
}

func TestCode_PlainError(t *testing.T) {
	assert.Empty(t, Code(os.ErrClosed))
}
