package run

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/John-Robertt/pageshift/internal/app"
	"github.com/John-Robertt/pageshift/internal/app/planner"
	"github.com/John-Robertt/pageshift/internal/config"
	"github.com/John-Robertt/pageshift/internal/domain"
	"github.com/John-Robertt/pageshift/internal/infra/fsx"
	"github.com/John-Robertt/pageshift/internal/scan"
)

// Execute 对 eff.Folder 执行一次下移（或 dry-run），并返回对外稳定的 RunReport。
func Execute(ctx context.Context, eff config.EffectiveConfig) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
//
// 执行语义：
// - 严格按计划顺序串行改名；任何一条失败即中止，已完成的改名保留（不回滚），其余标记 not_attempted
// - 计划中存在 index=0 时整体拒绝，不做任何改名
// - dry-run 不触碰文件系统，但会按同样的中止语义模拟可预见的冲突
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, obs Observer) domain.RunReport {
	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Folder:    eff.Folder,
		DryRun:    eff.DryRun,
		StartedAt: time.Now().UTC(),
	}

	scanStarted := time.Now()
	names, err := scan.ListEntries(eff.Folder)
	if err != nil {
		code, msg := classify("scan", err)
		rr.Items = append(rr.Items, syntheticFailed(code, fmt.Sprintf("读取目录失败：%s", msg)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	pages, ignored := app.MatchPages(names)
	rr.Ignored = ignored
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"entries": len(names),
			"pages":   len(pages),
			"ignored": len(ignored),
		}, time.Since(scanStarted))
	}

	planStarted := time.Now()
	plan := planner.PlanShift(eff.Folder, pages, names)
	if obs != nil {
		obs.OnPhaseDone("plan", map[string]any{
			"renames":   len(plan.Renames),
			"conflicts": plan.Conflicts(),
		}, time.Since(planStarted))
	}

	if plan.Blocked() {
		rr.Items = blockedItems(plan)
		for i, it := range rr.Items {
			if it.Status == domain.StatusFailed && obs != nil {
				obs.OnItemDone(i+1, len(rr.Items), it, 0)
			}
		}
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	rr.Items = make([]domain.ItemResult, 0, len(plan.Renames))
	aborted := false
	for i, rp := range plan.Renames {
		item := domain.ItemResult{
			Index:  rp.Index,
			Src:    rp.SrcName,
			Dst:    rp.DstName,
			Status: domain.StatusNotAttempted,
		}
		if aborted {
			rr.Items = append(rr.Items, item)
			continue
		}

		started := time.Now()
		switch {
		case ctx.Err() != nil:
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeCanceled
			item.ErrorMsg = fmt.Sprintf("已取消：%v", ctx.Err())
		case eff.DryRun:
			item.Status = domain.StatusPlanned
			if rp.Conflict != "" {
				item.Status = domain.StatusFailed
				item.ErrorCode = rp.Conflict
				item.ErrorMsg = fmt.Sprintf("预计冲突：目标 %q 已存在且不会在本批次中被改走", rp.DstName)
			}
		default:
			src := filepath.Join(plan.Folder, rp.SrcName)
			dst := filepath.Join(plan.Folder, rp.DstName)
			if err := fsx.RenameNoReplace(src, dst); err != nil {
				item.Status = domain.StatusFailed
				item.ErrorCode, item.ErrorMsg = classify("rename", err)
			} else {
				item.Status = domain.StatusRenamed
			}
		}

		if item.Status == domain.StatusFailed {
			aborted = true
		}
		rr.Items = append(rr.Items, item)
		if obs != nil {
			obs.OnItemDone(i+1, len(plan.Renames), item, time.Since(started))
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// blockedItems 把被拒绝的计划转换为报告条目：index=0 的条目 failed，其余 not_attempted。
func blockedItems(plan domain.ShiftPlan) []domain.ItemResult {
	items := make([]domain.ItemResult, 0, len(plan.Renames))
	for _, rp := range plan.Renames {
		it := domain.ItemResult{
			Index:  rp.Index,
			Src:    rp.SrcName,
			Dst:    rp.DstName,
			Status: domain.StatusNotAttempted,
		}
		if rp.Conflict == domain.ErrCodeNegativeIndex {
			it.Status = domain.StatusFailed
			it.ErrorCode = domain.ErrCodeNegativeIndex
			it.ErrorMsg = fmt.Sprintf("%q 的 index=0，下移后会得到负数页码；整批拒绝执行，未改名任何文件", rp.SrcName)
		}
		items = append(items, it)
	}
	return items
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

// classify 把底层错误映射为报告中的 error_code（集中在一处，避免到处散落判断）。
// not-exist / 不是目录 只在 scan 阶段意味着目录缺失；rename 阶段的 not-exist（源文件中途消失）归为 io_failed。
func classify(stage string, err error) (code, msg string) {
	msg = err.Error()
	switch {
	case fsx.IsTargetExists(err):
		return domain.ErrCodeTargetExists, msg
	case fsx.IsCrossDevice(err):
		return domain.ErrCodeCrossDevice, msg
	case stage == "scan" && (errors.Is(err, fs.ErrNotExist) || fsx.IsPathTypeConflict(err)):
		return domain.ErrCodeFolderNotFound, msg
	case errors.Is(err, fs.ErrPermission):
		return domain.ErrCodePermissionDenied, msg
	default:
		return domain.ErrCodeIOFailed, msg
	}
}
