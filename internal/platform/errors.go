package platform

import "fmt"

// ExtractionError 表示某个必填字段（id、封面图、列表标题 slug 等）在页面里定位失败。
//
// 约束：
// - 原因是结构性的（站点改版/选择器不匹配），不是瞬时故障，所以绝不在内部重试
// - 原样向调用方传播，由上层决定是否换选择器配置
type ExtractionError struct {
	Site   string // 站点名（profile.Name）
	Entity string // "manga" / "chapters" / "pages" / "search" / "listing"
	Field  string // 缺失的字段
	ID     string // 触发请求的标题/章节 id（可为空）
}

func (e *ExtractionError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("site=%s entity=%s：字段 %q 解析失败（id=%s）", e.Site, e.Entity, e.Field, e.ID)
	}
	return fmt.Sprintf("site=%s entity=%s：字段 %q 解析失败", e.Site, e.Entity, e.Field)
}

// ChallengeError 表示站点返回了 503（通常是 Cloudflare 人机校验）。
//
// 产品约束：不尝试绕过。提示文案原样展示给最终用户，让其去宿主应用里手动过校验。
type ChallengeError struct {
	Site string
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("site=%s：站点返回 503（反爬校验）。请在宿主应用的站点设置里完成 Cloudflare 校验后重试", e.Site)
}
