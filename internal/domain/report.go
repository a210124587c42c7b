package domain

import (
	"sort"
	"time"
)

const (
	StatusRenamed      = "renamed"
	StatusPlanned      = "planned"
	StatusFailed       = "failed"
	StatusNotAttempted = "not_attempted"
)

const (
	ErrCodeFolderNotFound      = "folder_not_found"
	ErrCodePermissionDenied    = "permission_denied"
	ErrCodeTargetExists        = "target_exists"
	ErrCodeCrossDevice         = "cross_device"
	ErrCodeNegativeIndex       = "negative_index"
	ErrCodeCanceled            = "canceled"
	ErrCodeIOFailed            = "io_failed"
	ErrCodeConfigNotFound      = "config_not_found"
	ErrCodeConfigInvalid       = "config_invalid"
	ErrCodeConfigMissingFolder = "config_missing_folder"
)

// RunReport 是对外稳定输出（--json / --report）的结构。
type RunReport struct {
	Folder string `json:"folder"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`

	// Ignored 是目录中不匹配 page-<N>.png 的条目（原样保留，不做任何处理）。
	Ignored []string `json:"ignored"`
}

type ReportSummary struct {
	Renamed      int `json:"renamed"`
	Planned      int `json:"planned"`
	Failed       int `json:"failed"`
	NotAttempted int `json:"not_attempted"`
	Ignored      int `json:"ignored"`
}

type ItemResult struct {
	Index int    `json:"index"`
	Src   string `json:"src"`
	Dst   string `json:"dst"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 保持计划顺序；src=="" 的合成条目（配置/扫描失败）排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Items == nil {
		r.Items = []ItemResult{}
	}
	if r.Ignored == nil {
		r.Ignored = []string{}
	}

	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].Src != "" && r.Items[j].Src == ""
	})

	s := ReportSummary{Ignored: len(r.Ignored)}
	for _, it := range r.Items {
		switch it.Status {
		case StatusRenamed:
			s.Renamed++
		case StatusPlanned:
			s.Planned++
		case StatusFailed:
			s.Failed++
		case StatusNotAttempted:
			s.NotAttempted++
		}
	}
	r.Summary = s
}

// OK 表示本次 run 没有任何失败条目。
func (r RunReport) OK() bool {
	return r.Summary.Failed == 0
}
