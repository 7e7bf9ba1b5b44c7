package classifier

import (
	"strings"
)

// Category 文件分类标签
type Category string

const (
	Images    Category = "images"
	Video     Category = "video"
	Documents Category = "documents"
	Audio     Category = "audio"
	Archives  Category = "archives"
	Others    Category = "others"
)

// Categories 返回全部分类标签，顺序固定
func Categories() []Category {
	return []Category{Images, Video, Documents, Audio, Archives, Others}
}

// Table 分类到扩展名列表的映射，扩展名带点且为小写
type Table map[Category][]string

// DefaultTable 返回内置的分类表
func DefaultTable() Table {
	return Table{
		Images:    {".jpeg", ".png", ".jpg", ".svg"},
		Video:     {".avi", ".mp4", ".mov", ".mkv"},
		Documents: {".doc", ".docx", ".txt", ".pdf", ".xlsx", ".pptx"},
		Audio:     {".mp3", ".ogg", ".wav", ".amr"},
		Archives:  {".zip", ".gz", ".tar"},
	}
}

// archiveExtensions 既属于 archives 分类，也会触发解压
var archiveExtensions = map[string]struct{}{
	".zip": {},
	".gz":  {},
	".tar": {},
}

// IsArchive 判断扩展名是否需要解压，大小写不敏感
func IsArchive(ext string) bool {
	_, ok := archiveExtensions[strings.ToLower(ext)]
	return ok
}

type Classifier struct {
	lookup   map[string]Category
	observer ExtensionObserver
}

// New 创建分类器，observer 可以为 nil
func New(table Table, observer ExtensionObserver) *Classifier {
	lookup := make(map[string]Category)
	for _, category := range Categories() {
		for _, ext := range table[category] {
			lookup[ext] = category
		}
	}

	if observer == nil {
		observer = noopObserver{}
	}

	return &Classifier{
		lookup:   lookup,
		observer: observer,
	}
}

// NewDefault 使用内置分类表创建分类器
func NewDefault(observer ExtensionObserver) *Classifier {
	return New(DefaultTable(), observer)
}

// Classify 返回扩展名对应的分类，调用方负责转为小写
// 未知扩展名归入 others，永不失败
func (c *Classifier) Classify(ext string) Category {
	if category, ok := c.lookup[ext]; ok {
		c.observer.ObserveKnown(ext)
		return category
	}

	c.observer.ObserveUnknown(ext)
	return Others
}

// ArchiveCategory 返回压缩包所在的分类目录名
func (c *Classifier) ArchiveCategory() Category {
	if category, ok := c.lookup[".zip"]; ok {
		return category
	}
	return Archives
}
