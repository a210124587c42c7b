package scan

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/John-Robertt/pageshift/internal/infra/fsx"
)

// ListEntries 列出 folder 下的全部条目名（非递归，文件与子目录都包含）。
//
// 规则：
// - folder 不存在：返回底层 not-exist 错误（调用方用 errors.Is(fs.ErrNotExist) 判定）
// - folder 不是目录：返回 *fsx.PathTypeConflictError
// - 只读目录项，不 stat 也不读文件内容
func ListEntries(folder string) ([]string, error) {
	folder = filepath.Clean(folder)

	fi, err := os.Stat(folder)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, &fsx.PathTypeConflictError{Path: folder, Want: "dir", Got: "file"}
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	// os.ReadDir 已按文件名排序；这里再显式排序一次，不依赖实现细节。
	sort.Strings(names)
	return names, nil
}
