package record

import (
	"context"
)

// Phase names a slot in the lifecycle where hooks run.
type Phase int

const (
	BeforeValidation Phase = iota
	AfterValidation
	BeforeSave
	AfterSave
	BeforeCreate
	AfterCreate
	BeforeUpdate
	AfterUpdate
	BeforeDestroy
	AfterDestroy

	numPhases
)

var phaseNames = [numPhases]string{
	"before_validation",
	"after_validation",
	"before_save",
	"after_save",
	"before_create",
	"after_create",
	"before_update",
	"after_update",
	"before_destroy",
	"after_destroy",
}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// Hook runs at a lifecycle phase. Hooks may mutate the record; a returned error
// aborts the pipeline and is returned to the caller.
type Hook func(ctx context.Context, r *Record) error

// hookChain holds the registered hooks for each phase, in registration order.
type hookChain [numPhases][]Hook

func (h *hookChain) add(p Phase, hook Hook) {
	h[p] = append(h[p], hook)
}

func (h *hookChain) run(ctx context.Context, p Phase, r *Record) error {
	for _, hook := range h[p] {
		if err := hook(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (h *hookChain) clone() hookChain {
	var c hookChain
	for i, hooks := range h {
		c[i] = append([]Hook(nil), hooks...)
	}
	return c
}
