package app

import (
	"context"
	"fmt"

	"github.com/likelabs/likeship/internal/domain"
)

// Dispatcher routes commands from the closed domain.Command union to the
// engine through one typed handler. Callers get a typed result instead of
// matching on action strings.
type Dispatcher struct {
	engine *Engine
}

// NewDispatcher creates a dispatcher over the given engine.
func NewDispatcher(engine *Engine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// Dispatch executes one command and returns its typed result.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	switch c := cmd.(type) {
	case domain.Capture:
		res, err := d.engine.Submit(ctx, c.Record)
		return domain.CommandResult{Submit: &res}, err
	case domain.RetryQueue:
		summary, err := d.engine.Drain(ctx)
		if err != nil {
			return domain.CommandResult{}, err
		}
		return domain.CommandResult{Drain: &summary}, nil
	case domain.GetStatus:
		status, err := d.engine.Status(ctx)
		if err != nil {
			return domain.CommandResult{}, err
		}
		return domain.CommandResult{Status: &status}, nil
	default:
		// Unreachable while the union stays sealed.
		return domain.CommandResult{}, fmt.Errorf("likeship: unknown command %T", cmd)
	}
}
