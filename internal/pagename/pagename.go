package pagename

import (
	"fmt"
	"regexp"
	"strconv"
)

// 固定格式：page-<digits>.png，大小写不敏感。
// RE2 的 \d 只匹配 ASCII 数字，不会把全角数字当作页码。
var pageRE = regexp.MustCompile(`(?i)^page-(\d+)\.png$`)

// Parse 从文件名中提取页码 index。
//
// 不匹配固定格式、或数字超出 int 范围时返回 ok=false（调用方应把该条目视为无关文件）。
func Parse(name string) (index int, ok bool) {
	m := pageRE.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Format 生成规范化（小写）的文件名：page-<index>.png。
func Format(index int) string {
	return fmt.Sprintf("page-%d.png", index)
}
