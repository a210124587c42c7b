package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/John-Robertt/pageshift/internal/config"
	"github.com/John-Robertt/pageshift/internal/domain"
)

func TestExecute_ShiftsAllPagesDownByOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-1.png", "one")
	writeFile(t, dir, "page-2.png", "two")
	writeFile(t, dir, "page-3.png", "three")

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir})

	if !rr.OK() || rr.Summary.Renamed != 3 {
		t.Fatalf("不期望失败：summary=%+v items=%+v", rr.Summary, rr.Items)
	}
	assertNames(t, dir, "page-0.png", "page-1.png", "page-2.png")
	// 内容随文件移动：原 page-1 的内容现在在 page-0。
	assertContent(t, dir, "page-0.png", "one")
	assertContent(t, dir, "page-1.png", "two")
	assertContent(t, dir, "page-2.png", "three")
}

func TestExecute_NumericOrderAcrossDigitBoundary(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 11; i++ {
		writeFile(t, dir, pageName(i), pageName(i))
	}

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir})
	if !rr.OK() {
		t.Fatalf("不期望失败：%+v", rr.Items)
	}

	want := make([]string, 0, 11)
	for i := 0; i <= 10; i++ {
		want = append(want, pageName(i))
		assertContent(t, dir, pageName(i), pageName(i+1))
	}
	assertNames(t, dir, want...)
}

func TestExecute_UnrelatedFilesUntouched(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-1.png", "p")
	writeFile(t, dir, "notes.txt", "keep me")
	writeFile(t, dir, "page-2.jpg", "jpg")

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir})

	if !rr.OK() || rr.Summary.Renamed != 1 {
		t.Fatalf("不期望失败：summary=%+v", rr.Summary)
	}
	assertNames(t, dir, "notes.txt", "page-0.png", "page-2.jpg")
	assertContent(t, dir, "notes.txt", "keep me")
	assertContent(t, dir, "page-2.jpg", "jpg")

	if len(rr.Ignored) != 2 || rr.Summary.Ignored != 2 {
		t.Fatalf("ignored 不符合预期：%v", rr.Ignored)
	}
}

func TestExecute_CaseInsensitiveMatchLowercaseOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "PAGE-3.PNG", "x")

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir})

	if !rr.OK() {
		t.Fatalf("不期望失败：%+v", rr.Items)
	}
	assertNames(t, dir, "page-2.png")
	if rr.Items[0].Src != "PAGE-3.PNG" || rr.Items[0].Dst != "page-2.png" {
		t.Fatalf("item 不符合预期：%+v", rr.Items[0])
	}
}

func TestExecute_EmptyFolder(t *testing.T) {
	dir := t.TempDir()

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir})

	if !rr.OK() || len(rr.Items) != 0 {
		t.Fatalf("空目录不应产生条目：%+v", rr)
	}
}

func TestExecute_IndexZeroRefusesWholeBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-0.png", "zero")
	writeFile(t, dir, "page-1.png", "one")

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir})

	if rr.OK() {
		t.Fatalf("index=0 时必须失败")
	}
	if rr.Items[0].ErrorCode != domain.ErrCodeNegativeIndex || rr.Items[1].Status != domain.StatusNotAttempted {
		t.Fatalf("items 不符合预期：%+v", rr.Items)
	}
	// 不允许出现 page--1.png，也不允许改动任何文件。
	assertNames(t, dir, "page-0.png", "page-1.png")
	assertContent(t, dir, "page-0.png", "zero")
}

func TestExecute_RunningTwiceShiftsByTwoThenRefuses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-2.png", "a")
	writeFile(t, dir, "page-3.png", "b")

	eff := config.EffectiveConfig{Folder: dir}
	if rr := Execute(context.Background(), eff); !rr.OK() {
		t.Fatalf("第一次不期望失败：%+v", rr.Items)
	}
	if rr := Execute(context.Background(), eff); !rr.OK() {
		t.Fatalf("第二次不期望失败：%+v", rr.Items)
	}
	assertNames(t, dir, "page-0.png", "page-1.png")

	rr := Execute(context.Background(), eff)
	if rr.OK() || rr.Items[0].ErrorCode != domain.ErrCodeNegativeIndex {
		t.Fatalf("第三次应因 index=0 被拒绝：%+v", rr.Items)
	}
	assertNames(t, dir, "page-0.png", "page-1.png")
}

func TestExecute_DuplicateIndexFailsWithPartialCompletion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-01.png", "first")
	writeFile(t, dir, "page-1.png", "second")
	writeFile(t, dir, "page-5.png", "five")

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir})

	if rr.OK() {
		t.Fatalf("期望失败")
	}
	want := []struct {
		src, status, code string
	}{
		{"page-01.png", domain.StatusRenamed, ""},
		{"page-1.png", domain.StatusFailed, domain.ErrCodeTargetExists},
		{"page-5.png", domain.StatusNotAttempted, ""},
	}
	if len(rr.Items) != len(want) {
		t.Fatalf("期望 %d 条，实际 %+v", len(want), rr.Items)
	}
	for i, w := range want {
		it := rr.Items[i]
		if it.Src != w.src || it.Status != w.status || it.ErrorCode != w.code {
			t.Fatalf("第 %d 条不符合预期：%+v", i, it)
		}
	}

	// 已完成的改名保留；失败的目标未被覆盖；中止后的条目未动。
	assertNames(t, dir, "page-0.png", "page-1.png", "page-5.png")
	assertContent(t, dir, "page-0.png", "first")
	assertContent(t, dir, "page-1.png", "second")
}

func TestExecute_FolderMissing(t *testing.T) {
	rr := Execute(context.Background(), config.EffectiveConfig{Folder: filepath.Join(t.TempDir(), "nope")})

	if rr.OK() || len(rr.Items) != 1 {
		t.Fatalf("期望 1 条失败：%+v", rr.Items)
	}
	if rr.Items[0].ErrorCode != domain.ErrCodeFolderNotFound || rr.Items[0].Src != "" {
		t.Fatalf("item 不符合预期：%+v", rr.Items[0])
	}
}

func TestExecute_FolderIsAFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-1.png", "x")

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: filepath.Join(dir, "page-1.png")})

	if rr.OK() || rr.Items[0].ErrorCode != domain.ErrCodeFolderNotFound {
		t.Fatalf("期望 folder_not_found：%+v", rr.Items)
	}
}

func TestExecute_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("需要非 root 的 POSIX 权限语义")
	}
	dir := t.TempDir()
	writeFile(t, dir, "page-1.png", "x")
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("chmod 失败：%v", err)
	}
	defer os.Chmod(dir, 0o755)

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir})

	if rr.OK() || rr.Items[0].ErrorCode != domain.ErrCodePermissionDenied {
		t.Fatalf("期望 permission_denied：%+v", rr.Items)
	}
}

func TestExecute_DryRun_NoWrites(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-1.png", "a")
	writeFile(t, dir, "page-2.png", "b")

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir, DryRun: true})

	if !rr.OK() || !rr.DryRun || rr.Summary.Planned != 2 || rr.Summary.Renamed != 0 {
		t.Fatalf("dry-run summary 不符合预期：%+v", rr.Summary)
	}
	assertNames(t, dir, "page-1.png", "page-2.png")
	if rr.Items[0].Dst != "page-0.png" || rr.Items[0].Status != domain.StatusPlanned {
		t.Fatalf("item 不符合预期：%+v", rr.Items[0])
	}
}

func TestExecute_DryRun_PredictsConflict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-01.png", "a")
	writeFile(t, dir, "page-1.png", "b")

	rr := Execute(context.Background(), config.EffectiveConfig{Folder: dir, DryRun: true})

	if rr.OK() {
		t.Fatalf("dry-run 应预见冲突")
	}
	if rr.Items[0].Status != domain.StatusPlanned || rr.Items[1].ErrorCode != domain.ErrCodeTargetExists {
		t.Fatalf("items 不符合预期：%+v", rr.Items)
	}
	assertNames(t, dir, "page-01.png", "page-1.png")
}

func TestExecute_CanceledContextStopsBeforeRenaming(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-1.png", "a")
	writeFile(t, dir, "page-2.png", "b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rr := Execute(ctx, config.EffectiveConfig{Folder: dir})

	if rr.OK() || rr.Items[0].ErrorCode != domain.ErrCodeCanceled || rr.Items[1].Status != domain.StatusNotAttempted {
		t.Fatalf("items 不符合预期：%+v", rr.Items)
	}
	assertNames(t, dir, "page-1.png", "page-2.png")
}

func pageName(i int) string {
	return fmt.Sprintf("page-%d.png", i)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

func assertNames(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Name())
	}
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("目录内容不符合预期：want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("目录内容不符合预期：want=%v got=%v", want, got)
		}
	}
}

func assertContent(t *testing.T, dir, name, want string) {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("读取 %s 失败：%v", name, err)
	}
	if string(b) != want {
		t.Fatalf("%s 内容不一致：want=%q got=%q", name, want, string(b))
	}
}
