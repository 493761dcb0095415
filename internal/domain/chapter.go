package domain

import "time"

// Chapter 是章节列表中的一行。
//
// 约束：
// - ID 在同一个标题下唯一（列表内去重，保留首次出现）
// - ChapNum 无法从链接解析时记 0，并把原始文案留在 Name 里
type Chapter struct {
	ID      string
	MangaID string
	Lang    string

	ChapNum float64
	Name    string

	Time time.Time
}

// PageList 是一个章节的全部页面图片地址，保持文档顺序，不去重。
type PageList struct {
	ID      string
	MangaID string
	Pages   []string
}
