package domain

// PageFile 是一次扫描中匹配到的 (index, 原文件名) 对，只在单次 run 内存在。
//
// 不变量：Index 非负，且来自 Name 的数字段；Name 保留原始大小写。
type PageFile struct {
	Index int
	Name  string
}
