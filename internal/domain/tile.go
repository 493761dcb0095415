package domain

// Tile 是列表页（搜索/目录/首页栏目）上一格的临时数据，
// 只在产生它的那一页内有意义，不做持久化。
type Tile struct {
	ID    string
	Title string
	Image string
}
