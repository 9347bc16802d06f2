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
	"sync/atomic"
	"time"
)

// tracker holds the counters shared between the worker and observers.
// Only the worker writes; anyone may take a snapshot.
type tracker struct {
	done       atomic.Int64
	total      atomic.Int64
	doneBytes  atomic.Int64
	totalBytes atomic.Int64

	interval time.Duration
	sink     ProgressFunc
	lastEmit time.Time
	now      func() time.Time
}

func newTracker(interval time.Duration, sink ProgressFunc) *tracker {
	if interval == 0 {
		interval = DefaultProgressInterval
	}

	return &tracker{interval: interval, sink: sink, now: time.Now}
}

func (t *tracker) setTotals(items int, bytes int64) {
	t.total.Store(int64(items))
	t.totalBytes.Store(bytes)
}

func (t *tracker) set(done int, doneBytes int64) {
	t.done.Store(int64(done))
	t.doneBytes.Store(doneBytes)
	t.emit(false)
}

func (t *tracker) snapshot() Progress {
	return Progress{
		Done:       int(t.done.Load()),
		Total:      int(t.total.Load()),
		DoneBytes:  t.doneBytes.Load(),
		TotalBytes: t.totalBytes.Load(),
	}
}

// emit forwards a snapshot to the sink, at most once per interval unless
// forced.
func (t *tracker) emit(force bool) {
	if t.sink == nil {
		return
	}

	now := t.now()
	if !force && !t.lastEmit.IsZero() && now.Sub(t.lastEmit) < t.interval {
		return
	}

	t.lastEmit = now
	p := t.snapshot()
	t.sink(p.Done, p.Total, p.DoneBytes, p.TotalBytes)
}
