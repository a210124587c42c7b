package app

import (
	"github.com/John-Robertt/pageshift/internal/domain"
	"github.com/John-Robertt/pageshift/internal/pagename"
)

// MatchPages 把目录条目拆成两类：匹配 page-<N>.png 的页面文件，和其余被忽略的条目。
//
// - pages 保持输入顺序（排序由 planner 负责）
// - ignored 保持输入顺序，只用于报告，不参与任何文件操作
func MatchPages(names []string) (pages []domain.PageFile, ignored []string) {
	pages = make([]domain.PageFile, 0, len(names))
	ignored = make([]string, 0, 8)

	for _, name := range names {
		n, ok := pagename.Parse(name)
		if !ok {
			ignored = append(ignored, name)
			continue
		}
		pages = append(pages, domain.PageFile{Index: n, Name: name})
	}
	return pages, ignored
}
