package planner

import (
	"path/filepath"
	"sort"

	"github.com/John-Robertt/pageshift/internal/domain"
	"github.com/John-Robertt/pageshift/internal/pagename"
)

// PlanShift 基于匹配到的页面与目录现状生成确定性的下移计划（不做任何改名）。
//
// 顺序：按 (Index, SrcName) 升序。升序保证 page-(N-1).png 在轮到 page-N.png 之前已被改走，
// 因此 index 互不相同的批次不会自我冲突。
//
// 冲突标记（只用于报告与 dry-run；真正的拒绝覆盖由执行层的 no-replace rename 保证）：
// - negative_index：index=0 没有合法目标，整个计划必须拒绝执行
// - target_exists：目标名已在目录中、且不是本批次更早改走的源；或已被更早的条目占用
func PlanShift(folder string, pages []domain.PageFile, existing []string) domain.ShiftPlan {
	sorted := append([]domain.PageFile(nil), pages...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Index != sorted[j].Index {
			return sorted[i].Index < sorted[j].Index
		}
		return sorted[i].Name < sorted[j].Name
	})

	present := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		present[n] = struct{}{}
	}
	freed := make(map[string]struct{}, len(sorted))
	claimed := make(map[string]struct{}, len(sorted))

	renames := make([]domain.RenamePlan, 0, len(sorted))
	for _, p := range sorted {
		rp := domain.RenamePlan{Index: p.Index, SrcName: p.Name}

		if p.Index == 0 {
			rp.Conflict = domain.ErrCodeNegativeIndex
			renames = append(renames, rp)
			continue
		}

		rp.DstName = pagename.Format(p.Index - 1)
		if _, ok := claimed[rp.DstName]; ok {
			rp.Conflict = domain.ErrCodeTargetExists
		} else if _, ok := present[rp.DstName]; ok {
			if _, ok := freed[rp.DstName]; !ok {
				rp.Conflict = domain.ErrCodeTargetExists
			}
		}

		// 只有无冲突的条目会真正改名；冲突条目不会释放源、也不会占用目标。
		if rp.Conflict == "" {
			freed[rp.SrcName] = struct{}{}
			claimed[rp.DstName] = struct{}{}
		}
		renames = append(renames, rp)
	}

	return domain.ShiftPlan{
		Folder:  filepath.Clean(folder),
		Renames: renames,
	}
}
