package domain

// RenamePlan 规划一次同目录内的重命名（只描述 src/dst；执行必须严格按 ShiftPlan 的顺序）。
type RenamePlan struct {
	Index   int
	SrcName string
	DstName string // index=0 时为空（不存在合法目标）

	// Conflict 是规划阶段可预见的问题（error code）；空串表示无冲突。
	Conflict string
}

// ShiftPlan 是整个目录的下移计划，Renames 已按 (Index, SrcName) 升序排列。
type ShiftPlan struct {
	Folder  string
	Renames []RenamePlan
}

// Blocked 报告计划是否必须整体拒绝执行（目前只有 index=0 会导致拒绝）。
func (p ShiftPlan) Blocked() bool {
	for _, r := range p.Renames {
		if r.Conflict == ErrCodeNegativeIndex {
			return true
		}
	}
	return false
}

// Conflicts 统计带冲突标记的条目数。
func (p ShiftPlan) Conflicts() int {
	n := 0
	for _, r := range p.Renames {
		if r.Conflict != "" {
			n++
		}
	}
	return n
}
