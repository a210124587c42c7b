package run

import (
	"time"

	"github.com/John-Robertt/pageshift/internal/config"
	"github.com/John-Robertt/pageshift/internal/domain"
)

// Observer 用于把"阶段/条目结果"从核心执行流程中解耦出来。
//
// 约束：run 包只负责发事件，不做任何输出；展示方式由 CLI 决定。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（scan/plan），用于打印统计与耗时。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在每条改名尝试结束时调用（renamed/planned/failed）；not_attempted 不触发。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
