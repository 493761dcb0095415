package domain

// Status 是作品的连载状态。状态页上的文案五花八门，引擎只区分两种。
type Status int

const (
	StatusCompleted Status = iota
	StatusOngoing
)

func (s Status) String() string {
	if s == StatusOngoing {
		return "ongoing"
	}
	return "completed"
}

// Manga 是详情页解析得到的结构化记录（最小可用集）。
//
// 约束：
// - ID 是站点内部的数字 id（后续 AJAX 请求依赖它），缺失即解析失败
// - Image 缺失同样视为解析失败（通用解析逻辑失效的信号）
// - 其余字段允许为空，按既定默认值降级
type Manga struct {
	ID     string
	Titles []string
	Image  string

	Author string
	Artist string
	Desc   string

	Rating float64
	Status Status
	Adult  bool

	Tags []TagSection
}
