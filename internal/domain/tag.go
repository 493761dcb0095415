package domain

// Tag 是一个分类标签；ID 尽量取路径派生的标识，取不到就退回 label 本身。
type Tag struct {
	ID    string
	Label string
}

// TagSection 是一组标签。Madara 站点只有一组，固定 label 为 "genres"。
type TagSection struct {
	ID    string
	Label string
	Tags  []Tag
}
