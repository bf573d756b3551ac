package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	C "drape.com/drape/cloth"
	"drape.com/drape/utils"
	V "drape.com/drape/vector"
)

//Settled is the per step movement under which the cloth counts as at rest
const Settled = 1e-4

var ErrDiverged = errors.New("cloth diverged")

type Report struct {
	Steps       int
	Constraints int
	SettledAt   int //First step moving less than Settled, -1 when it never did
	Lo, Hi      V.Vec32
}

func (r Report) String() string {
	settled := "did not settle"
	if r.SettledAt >= 0 {
		settled = fmt.Sprintf("settled at step %d", r.SettledAt)
	}
	return fmt.Sprintf("%d steps, %d constraints, %s, bounds %s to %s",
		r.Steps, r.Constraints, settled, r.Lo.String(), r.Hi.String())
}

//Headless steps a fresh cloth with the fixed time step and checks it stays
//finite. It stops early when ctx ends
func Headless(ctx context.Context, cfg C.Config, steps int, logger *slog.Logger) (Report, error) {
	cloth, err := C.New(cfg)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Constraints: len(cloth.Constraints()), SettledAt: -1}

	var prev C.Snapshot
	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			break
		}
		prev = cloth.Snapshot(prev.Positions)
		cloth.Step(cfg.TimeStep)
		rep.Steps++

		if !cloth.Finite() {
			return rep, fmt.Errorf("%w at step %d", ErrDiverged, rep.Steps)
		}
		if rep.SettledAt < 0 && cloth.Stable(prev.Positions, Settled) {
			rep.SettledAt = rep.Steps
			logger.Debug("cloth settled", "step", rep.Steps)
		}
		if rep.Steps%100 == 0 {
			logger.Debug("stepping", "step", rep.Steps, "frame", cloth.Frame())
		}
	}

	rep.Lo, rep.Hi = utils.Bounds(cloth.Positions)
	logger.Info("headless run done", "steps", rep.Steps, "settled_at", rep.SettledAt)
	return rep, nil
}
