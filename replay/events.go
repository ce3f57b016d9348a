package replay

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/shadow-hq/shadow/events"
)

// ReplayStep names a stage of Engine.Replay.
type ReplayStep string

const (
	StepFetch    ReplayStep = "fetch"
	StepFork     ReplayStep = "fork"
	StepBaseline ReplayStep = "baseline"
	StepResolve  ReplayStep = "resolve"
	StepShadow   ReplayStep = "shadow"
	StepDiff     ReplayStep = "diff"
)

// ReplayStepEvent is published when a replay enters a step.
type ReplayStepEvent struct {
	Step   ReplayStep
	TxHash common.Hash
}

// ReplayCompletedEvent is published when a replay produced a report.
type ReplayCompletedEvent struct {
	Report *DiffReport
}

// EngineEvents holds the emitters of an Engine.
type EngineEvents struct {
	ReplayStep      events.EventEmitter[ReplayStepEvent]
	ReplayCompleted events.EventEmitter[ReplayCompletedEvent]
}
