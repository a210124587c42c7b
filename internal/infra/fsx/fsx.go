package fsx

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟 EXDEV/EEXIST 等错误。
var (
	renameFunc          = os.Rename
	renameNoReplaceFunc = renameNoReplace
)

// PathTypeConflictError 表示路径类型冲突（例如期望目录但实际是文件）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError 表示跨盘（EXDEV）导致的 rename 失败。
// 本工具只在同一目录内改名，不做 copy+delete。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘移动失败（EXDEV）：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice 判断 err 是否为跨盘（EXDEV）错误。
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// TargetExistsError 表示目标路径已存在，rename 被拒绝（目标保持原样）。
type TargetExistsError struct {
	Src string
	Dst string
	Err error
}

func (e *TargetExistsError) Error() string {
	return fmt.Sprintf("目标已存在，拒绝覆盖：%q -> %q", e.Src, e.Dst)
}

func (e *TargetExistsError) Unwrap() error { return e.Err }

// IsTargetExists 判断 err 是否为目标已存在错误。
func IsTargetExists(err error) bool {
	var e *TargetExistsError
	return errors.As(err, &e)
}

// Rename 封装 os.Rename，并把 EXDEV 显式标记为 CrossDeviceError。
// 注意：POSIX 上 os.Rename 会静默覆盖已存在的目标；不允许覆盖时用 RenameNoReplace。
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// RenameNoReplace 把 src 改名为 dst；若 dst 已存在则失败（*TargetExistsError），且 dst 不被修改。
//
// Linux 上使用 renameat2(RENAME_NOREPLACE) 保证检查与改名是同一个原子操作；
// 其他平台（或文件系统不支持该 flag）退化为 Lstat + rename。
func RenameNoReplace(src, dst string) error {
	if err := renameNoReplaceFunc(src, dst); err != nil {
		switch {
		case errors.Is(err, fs.ErrExist):
			return &TargetExistsError{Src: src, Dst: dst, Err: err}
		case isEXDEV(err):
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// renameCheckThenMove 是不具备原子 no-replace 能力时的退化实现。
// 检查与改名之间存在窗口期；本工具单进程顺序执行，可以接受。
func renameCheckThenMove(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return renameFunc(src, dst)
}

// WriteFileAtomicReplace 在 dir 下原子写入 name（临时文件 + rename），已存在则覆盖。
//
// - 临时文件必须与目标文件在同目录，以保证 rename 的原子性
// - 对临时文件做 Sync；目录 Sync 采用 best-effort
func WriteFileAtomicReplace(dir, name string, data []byte) error {
	return writeFileAtomic(dir, name, data, 0o644)
}

func writeFileAtomic(dir, name string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := Rename(tmpName, dst); err != nil {
		return err
	}

	_ = syncDirBestEffort(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，这里直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
