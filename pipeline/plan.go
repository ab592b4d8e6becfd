package pipeline

import (
	"fmt"
	"strings"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/starpipe/helper"
)

// UnknownStepError is returned when a selection names a step or phase that is not in the plan.
type UnknownStepError struct {
	Name  string
	Known []string
}

func (e UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q: expected one of %v", e.Name, strings.Join(e.Known, ", "))
}

// Plan is an ordered list of uniquely named steps.
type Plan struct {
	steps *om.OrderedMap // step name => Step
}

// NewPlan builds a Plan that runs steps in the order given.
func NewPlan(steps ...Step) (*Plan, error) {
	p := &Plan{steps: om.NewOrderedMap()}
	for _, s := range steps {
		if err := p.Add(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add appends s to the plan. Step names must be unique.
func (p *Plan) Add(s Step) error {
	if s.GetName() == "" {
		return fmt.Errorf("step of kind %v has no name", s.GetKind())
	}
	if _, exists := p.steps.Get(s.GetName()); exists {
		return fmt.Errorf("duplicate step name %q", s.GetName())
	}
	p.steps.Set(s.GetName(), s)
	return nil
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return p.steps.Len()
}

// Steps returns the steps in execution order.
func (p *Plan) Steps() []Step {
	retval := make([]Step, 0, p.steps.Len())
	iter := p.steps.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		retval = append(retval, kv.Value.(Step))
	}
	return retval
}

// Names returns the step names in execution order.
func (p *Plan) Names() []string {
	steps := p.Steps()
	retval := make([]string, len(steps))
	for idx, s := range steps {
		retval[idx] = s.GetName()
	}
	return retval
}

// Select returns a new plan holding only the steps matched by selectors, in their original order.
// A selector is either a step name or a phase name. No selectors selects the whole plan.
func (p *Plan) Select(selectors []string) (*Plan, error) {
	if len(selectors) == 0 {
		return p, nil
	}
	steps := p.Steps()
	wanted := make(map[string]struct{})
	iter := helper.StringSliceToOrderedMap(selectors).IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		sel := kv.Key.(string)
		matched := false
		for _, s := range steps {
			if s.GetName() == sel || s.GetPhase() == sel {
				wanted[s.GetName()] = struct{}{}
				matched = true
			}
		}
		if !matched {
			return nil, UnknownStepError{Name: sel, Known: p.Names()}
		}
	}
	retval, _ := NewPlan()
	for _, s := range steps {
		if _, ok := wanted[s.GetName()]; ok {
			_ = retval.Add(s)
		}
	}
	return retval, nil
}
