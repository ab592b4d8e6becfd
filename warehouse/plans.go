package warehouse

import (
	"fmt"

	"github.com/relloyd/starpipe/config"
	"github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/pipeline"
)

// Plan names accepted by NewPlan.
const (
	PlanRun       = "run"
	PlanLoad      = constants.PhaseLoad
	PlanTransform = constants.PhaseTransform
	PlanCreate    = constants.PhaseCreate
	PlanDrop      = constants.PhaseDrop
	PlanReset     = "reset"
)

// PlanNames lists the plans in the order they are usually shown to users.
var PlanNames = []string{PlanRun, PlanLoad, PlanTransform, PlanCreate, PlanDrop, PlanReset}

// NewPlan builds the named plan from cfg.
// The run plan loads staging tables and then transforms them. The reset plan drops and recreates every table.
func NewPlan(name string, cfg config.Config) (*pipeline.Plan, error) {
	var steps []pipeline.Step
	switch name {
	case PlanRun:
		steps = append(LoadSteps(cfg), TransformSteps()...)
	case PlanLoad:
		steps = LoadSteps(cfg)
	case PlanTransform:
		steps = TransformSteps()
	case PlanCreate:
		steps = CreateSteps()
	case PlanDrop:
		steps = DropSteps()
	case PlanReset:
		steps = append(DropSteps(), CreateSteps()...)
	default:
		return nil, fmt.Errorf("unknown plan %q", name)
	}
	return pipeline.NewPlan(steps...)
}

// NewSelectedPlan builds the named plan and narrows it to the selected steps or phases.
func NewSelectedPlan(name string, cfg config.Config, selectors []string) (*pipeline.Plan, error) {
	p, err := NewPlan(name, cfg)
	if err != nil {
		return nil, err
	}
	return p.Select(selectors)
}
