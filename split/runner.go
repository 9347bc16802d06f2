/*
 * MailSplit - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package split

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrBusy = errors.New("a split run is already active")

// Runner executes at most one split at a time on a dedicated goroutine.
type Runner struct {
	mu     sync.Mutex
	active *Run
}

type Run struct {
	orch   *Orchestrator
	cancel context.CancelFunc

	hasQuit chan struct{}
	result  *Result
	err     error
}

// Submit validates cfg and starts a run. It never blocks on the run itself.
// A configuration error is returned immediately; ErrBusy is returned if
// another run is still active.
func (r *Runner) Submit(ctx context.Context, cfg Config) (*Run, error) {
	orch, err := NewOrchestrator(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, ErrBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		orch:    orch,
		cancel:  cancel,
		hasQuit: make(chan struct{}),
	}
	r.active = run

	go func() {
		defer func() {
			if p := recover(); p != nil {
				log.WithFields(log.Fields{"run_id": orch.RunID(), "panic": p}).Error("split_run_panic")
				run.err = fmt.Errorf("split run panicked: %v", p)
			}

			cancel()

			r.mu.Lock()
			r.active = nil
			r.mu.Unlock()

			close(run.hasQuit)
		}()

		run.result, run.err = orch.Run(runCtx)
	}()

	return run, nil
}

// Active returns the running Run, if any.
func (r *Runner) Active() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (run *Run) ID() string {
	return run.orch.RunID()
}

func (run *Run) State() State {
	return run.orch.State()
}

func (run *Run) Progress() Progress {
	return run.orch.Progress()
}

// Cancel requests cooperative cancellation. In-flight item transfers are
// allowed to complete.
func (run *Run) Cancel() {
	run.cancel()
}

func (run *Run) Done() <-chan struct{} {
	return run.hasQuit
}

func (run *Run) Wait() (*Result, error) {
	<-run.hasQuit
	return run.result, run.err
}
