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

package transfer

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/store"
)

const (
	DefaultBatchSize     = 50
	TurboBatchSize       = 100
	DefaultCheckEvery    = 10
	DefaultProgressEvery = 5

	maxFailedIDLength = 50
)

type Progress struct {
	Processed int
	Total     int
	// Bytes is the size of all items processed so far, whether they
	// succeeded or not.
	Bytes int64
}

type ProgressFunc func(Progress)

type FailedItem struct {
	ID     string
	Error  string
	Bucket string
}

type Result struct {
	Succeeded int
	Processed int
	Bytes     int64
	Failed    []FailedItem
	Elapsed   time.Duration
	Batches   int
	Cancelled bool

	// Remaining holds the unprocessed items, starting with the one that
	// failed, when a capacity ceiling stopped the transfer.
	Remaining   []store.Item
	CapacityErr error
}

func (r *Result) ItemsPerSecond() float64 {
	if r.Processed == 0 || r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Processed) / r.Elapsed.Seconds()
}

func (r *Result) AvgPerItem() time.Duration {
	if r.Processed == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Processed)
}

// Merge folds a retry pass into r.
func (r *Result) Merge(o Result) {
	r.Succeeded += o.Succeeded
	r.Processed += o.Processed
	r.Bytes += o.Bytes
	r.Failed = append(r.Failed, o.Failed...)
	r.Elapsed += o.Elapsed
	r.Batches += o.Batches
	r.Cancelled = r.Cancelled || o.Cancelled
	r.Remaining = o.Remaining
	r.CapacityErr = o.CapacityErr
}

type Batcher struct {
	Store         store.MailStore
	BatchSize     int
	CheckEvery    int
	ProgressEvery int

	// Quiet demotes per-item logging to trace.
	Quiet  bool
	Logger *log.Entry
}
