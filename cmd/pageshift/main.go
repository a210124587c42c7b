package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/pageshift/internal/app/run"
	"github.com/John-Robertt/pageshift/internal/config"
	"github.com/John-Robertt/pageshift/internal/domain"
	"github.com/John-Robertt/pageshift/internal/infra/fsx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// exitError 携带退出码；err 为 nil 表示错误信息已经输出过。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

// execute 运行命令树并返回进程退出码：0 成功；1 配置/执行失败；2 参数错误。
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	fmt.Fprintln(stderr, `使用 "pageshift run --help" 查看详细说明。`)
	return 2
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "pageshift",
		Short: "把目录中的 page-<N>.png 整体下移一位（N -> N-1）",
		Long: `pageshift 用于在删除某一页后，把 FlipBooker 文档图片/缩略图目录中
剩余的 page-<N>.png 依次改名为 page-<N-1>.png。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newRunCmd(stdout, stderr))
	return root
}

type runFlags struct {
	doc     string
	kind    string
	root    string
	dryRun  bool
	json    bool
	report  string
	config  string
	noColor bool
}

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [folder]",
		Short: "执行一次下移（可用 --dry-run 只预览）",
		Example: `  pageshift run public/images/2dfc8bed
  pageshift run --doc 2dfc8bed --kind thumbnails
  pageshift run ./pages --dry-run --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := config.CLIArgs{
				Doc:        f.doc,
				Kind:       f.kind,
				Root:       f.root,
				DryRun:     f.dryRun,
				DryRunSet:  cmd.Flags().Changed("dry-run"),
				ConfigPath: f.config,
			}
			if len(args) == 1 {
				if f.doc != "" {
					return fmt.Errorf("folder 参数与 --doc 不能同时使用")
				}
				cli.Folder = args[0]
			}
			return runShift(cmd.Context(), cli, f, stdout, stderr)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.doc, "doc", "", "文档 ID；目录推导为 <root>/<kind>/<doc>")
	fl.StringVar(&f.kind, "kind", "", "images|thumbnails（默认 images）")
	fl.StringVar(&f.root, "root", "", "doc 推导目录时的根目录（默认 public）")
	fl.BoolVar(&f.dryRun, "dry-run", false, "只规划不改名；支持 --dry-run=false 覆盖配置中的 dry_run=true")
	fl.BoolVar(&f.json, "json", false, "stdout 只输出 RunReport JSON（逐条改名与完成行改写到 stderr）")
	fl.StringVar(&f.report, "report", "", "把 RunReport JSON 原子写入该文件")
	fl.StringVar(&f.config, "config", "", "配置文件路径（.json/.yaml/.yml）；默认尝试 cwd 下的 pageshift.json/yaml/yml")
	fl.BoolVar(&f.noColor, "no-color", false, "禁用彩色输出")
	return cmd
}

func runShift(ctx context.Context, cli config.CLIArgs, f runFlags, stdout, stderr io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("读取当前目录失败：%w", err)}
	}

	// --json 时 stdout 只留给 RunReport。
	lineW := stdout
	if f.json {
		lineW = stderr
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		rr := reportForConfigError(cwd, cli, err)
		return finish(rr, f, lineW, stdout, stderr)
	}

	ui := newConsoleUI(lineW, stderr, isTerminal(stderr), !f.noColor && isTerminal(lineW))
	rr := run.ExecuteWithObserver(ctx, eff, ui)
	return finish(rr, f, lineW, stdout, stderr)
}

// finish 输出合成失败、报告文件、JSON 与完成行，并决定退出码。
func finish(rr domain.RunReport, f runFlags, lineW, stdout, stderr io.Writer) error {
	// 配置/扫描失败没有对应的文件条目，Observer 不会收到事件：这里补打到 stderr。
	for _, it := range rr.Items {
		if it.Src == "" && it.Status == domain.StatusFailed {
			fmt.Fprintf(stderr, "%s: %s\n", it.ErrorCode, it.ErrorMsg)
		}
	}

	failed := !rr.OK()
	if f.report != "" {
		if err := writeReportFile(f.report, rr); err != nil {
			fmt.Fprintf(stderr, "写入报告失败：%v\n", err)
			failed = true
		}
	}

	if f.json {
		enc := json.NewEncoder(stdout)
		_ = enc.Encode(rr)
	}
	fmt.Fprintln(lineW, completionLine(rr))

	if failed {
		return &exitError{code: 1}
	}
	return nil
}

func completionLine(rr domain.RunReport) string {
	s := rr.Summary
	if rr.DryRun {
		return fmt.Sprintf("Dry run complete: planned=%d failed=%d not_attempted=%d ignored=%d",
			s.Planned, s.Failed, s.NotAttempted, s.Ignored)
	}
	return fmt.Sprintf("Renaming complete: renamed=%d failed=%d not_attempted=%d ignored=%d",
		s.Renamed, s.Failed, s.NotAttempted, s.Ignored)
}

func reportForConfigError(cwd string, cli config.CLIArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		Folder:     cli.Folder,
		DryRun:     cli.DryRunSet && cli.DryRun,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}},
	}
	if cli.Folder != "" && !filepath.IsAbs(cli.Folder) {
		rr.Folder = filepath.Join(cwd, cli.Folder)
	}
	rr.Finalize()
	return rr
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Dir(abs), filepath.Base(abs), b)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
