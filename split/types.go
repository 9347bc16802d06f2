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
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/filter"
	"github.com/vs49688/mailsplit/grouping"
	"github.com/vs49688/mailsplit/store"
	"github.com/vs49688/mailsplit/transfer"
)

const DefaultProgressInterval = 250 * time.Millisecond

// ProgressFunc receives cumulative progress across all buckets.
type ProgressFunc func(done int, total int, doneBytes int64, totalBytes int64)

// EventFunc receives human-readable run events.
type EventFunc func(Event)

type Config struct {
	Store store.MailStore

	// OutputPath is the parent under which destinations are created.
	OutputPath string

	Mode     grouping.Mode
	MaxBytes int64
	Criteria filter.Criteria

	DryRun         bool
	Verify         bool
	Move           bool
	Quiet          bool
	Turbo          bool
	IncludeNonMail bool

	// BatchSize overrides the transfer batch size. Zero selects the
	// default for the current turbo setting.
	BatchSize int

	ProgressInterval time.Duration
	OnProgress       ProgressFunc
	OnEvent          EventFunc

	Logger *log.Entry
}

type State int32

const (
	StateIdle              State = 0
	StateHealthCheck       State = 1
	StateEnumerating       State = 2
	StateFiltering         State = 3
	StateGrouping          State = 4
	StateCreateDestination State = 5
	StateTransferring      State = 6
	StateFinalizing        State = 7
	StateCompleted         State = 8
	StateCancelled         State = 9
	StateFailed            State = 10
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHealthCheck:
		return "health_check"
	case StateEnumerating:
		return "enumerating"
	case StateFiltering:
		return "filtering"
	case StateGrouping:
		return "grouping"
	case StateCreateDestination:
		return "create_destination"
	case StateTransferring:
		return "transferring"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		panic("invalid_state")
	}
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

type Progress struct {
	Done       int
	Total      int
	DoneBytes  int64
	TotalBytes int64
}

type Event struct {
	Time    time.Time
	RunID   string
	State   State
	Message string
}

func (e Event) String() string {
	return fmt.Sprintf("%v [%v] %v", e.Time.Format("2006-01-02 15:04:05"), e.State, e.Message)
}

type BucketReport struct {
	Ordinal     int
	Name        string
	Destination string
	Items       int
	Bytes       int64
	Succeeded   int
	Failed      int
	Batches     int
	Elapsed     time.Duration
	CreatedAt   time.Time
	DryRun      bool
	Cancelled   bool
	Error       string
}

type Result struct {
	RunID string
	State State

	// Destinations holds the references of every destination created.
	Destinations []string

	// TotalItems and TotalBytes count everything attempted, regardless of
	// per-item outcome.
	TotalItems int
	TotalBytes int64

	// Errors is nil when the run recorded no errors.
	Errors []string

	Warnings        []string
	Recommendations []string
	Health          *store.HealthReport

	Enumerated int
	Filtered   int
	Cancelled  bool

	Buckets     []BucketReport
	FailedItems []transfer.FailedItem

	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Result) Succeeded() int {
	n := 0
	for i := range r.Buckets {
		n += r.Buckets[i].Succeeded
	}
	return n
}
