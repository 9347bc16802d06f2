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

// Package transfer moves a bucket's items into a destination in batches.
package transfer

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/metrics"
	"github.com/vs49688/mailsplit/store"
)

func (b *Batcher) withDefaults() Batcher {
	c := *b
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}

	if c.CheckEvery <= 0 {
		c.CheckEvery = DefaultCheckEvery
	}

	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}

	if c.Logger == nil {
		c.Logger = log.NewEntry(log.StandardLogger())
	}
	return c
}

func truncateID(id string) string {
	if len(id) <= maxFailedIDLength {
		return id
	}
	return id[:maxFailedIDLength]
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// Transfer copies (or moves) items into dest. Individual failures are
// recorded and skipped. The transfer stops early if ctx is cancelled or the
// store reports store.ErrCapacityExceeded.
func (b *Batcher) Transfer(ctx context.Context, items []store.Item, dest string, move bool, onProgress ProgressFunc) Result {
	cfg := b.withDefaults()
	logger := cfg.Logger.WithFields(log.Fields{"dest": dest, "move": move})

	itemLevel := log.DebugLevel
	if cfg.Quiet {
		itemLevel = log.TraceLevel
	}

	res := Result{}
	total := len(items)
	start := time.Now()

	report := func() {
		if onProgress != nil {
			onProgress(Progress{Processed: res.Processed, Total: total, Bytes: res.Bytes})
		}
	}

	logger.WithFields(log.Fields{
		"items":      total,
		"batch_size": cfg.BatchSize,
	}).Info("transfer_start")

	for batchStart := 0; batchStart < total; batchStart += cfg.BatchSize {
		if ctx.Err() != nil {
			res.Cancelled = true
			goto done
		}

		batchEnd := batchStart + cfg.BatchSize
		if batchEnd > total {
			batchEnd = total
		}

		res.Batches++
		batchStartTime := time.Now()
		batchSuccess := 0

		for i := batchStart; i < batchEnd; i++ {
			if i > batchStart && (i-batchStart)%cfg.CheckEvery == 0 && ctx.Err() != nil {
				res.Cancelled = true
				goto done
			}

			it := &items[i]
			err := cfg.Store.TransferItem(ctx, it.ID, dest, it.FolderPath, move)

			if err != nil && isCancellation(ctx, err) {
				res.Cancelled = true
				goto done
			}

			if err != nil && errors.Is(err, store.ErrCapacityExceeded) {
				logger.WithError(err).WithField("id", it.ID).Warn("transfer_capacity_exceeded")
				res.Remaining = items[i:]
				res.CapacityErr = err
				goto done
			}

			res.Processed++
			res.Bytes += it.Size

			if err != nil {
				metrics.ItemsTransferred.WithLabelValues("failed").Inc()
				res.Failed = append(res.Failed, FailedItem{ID: truncateID(it.ID), Error: err.Error()})
				logger.WithError(err).WithFields(log.Fields{
					"id":     it.ID,
					"folder": it.FolderPath,
				}).Warn("transfer_item_failed")
			} else {
				metrics.ItemsTransferred.WithLabelValues("success").Inc()
				metrics.BytesTransferred.Add(float64(it.Size))
				res.Succeeded++
				batchSuccess++
				logger.WithFields(log.Fields{
					"id":     it.ID,
					"folder": it.FolderPath,
					"size":   it.Size,
				}).Log(itemLevel, "transfer_item_success")
			}

			if res.Processed%cfg.ProgressEvery == 0 {
				report()
			}
		}

		batchTime := time.Since(batchStartTime)
		metrics.BatchDuration.Observe(batchTime.Seconds())

		logger.WithFields(log.Fields{
			"batch":     res.Batches,
			"succeeded": batchSuccess,
			"items":     batchEnd - batchStart,
			"ms":        batchTime.Milliseconds(),
		}).Info("transfer_batch_complete")

		report()
	}

done:
	res.Elapsed = time.Since(start)
	report()

	logger.WithFields(log.Fields{
		"processed":      res.Processed,
		"succeeded":      res.Succeeded,
		"failed":         len(res.Failed),
		"batches":        res.Batches,
		"cancelled":      res.Cancelled,
		"items_per_sec":  res.ItemsPerSecond(),
		"ms_per_item":    res.AvgPerItem().Milliseconds(),
		"capacity_error": res.CapacityErr != nil,
	}).Info("transfer_complete")

	return res
}
