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

// Package split drives a complete split run: health check, enumeration,
// filtering, grouping and per-bucket transfer.
package split

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/filter"
	"github.com/vs49688/mailsplit/grouping"
	"github.com/vs49688/mailsplit/metrics"
	"github.com/vs49688/mailsplit/store"
	"github.com/vs49688/mailsplit/transfer"
)

const enumerateCheckEvery = 100

type Orchestrator struct {
	cfg      Config
	runID    string
	policy   grouping.Policy
	logger   *log.Entry
	progress *tracker
	state    atomic.Int32
	turbo    bool
}

func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	policy, err := grouping.ForMode(cfg.Mode, cfg.MaxBytes)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	runID := uuid.NewString()

	return &Orchestrator{
		cfg:      cfg,
		runID:    runID,
		policy:   policy,
		logger:   logger.WithField("run_id", runID),
		progress: newTracker(cfg.ProgressInterval, cfg.OnProgress),
		turbo:    cfg.Turbo,
	}, nil
}

func (o *Orchestrator) RunID() string {
	return o.runID
}

func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) Progress() Progress {
	return o.progress.snapshot()
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	o.logger.WithField("state", s).Debug("split_state")
}

func (o *Orchestrator) event(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if o.cfg.OnEvent != nil {
		o.cfg.OnEvent(Event{Time: time.Now(), RunID: o.runID, State: o.State(), Message: msg})
	}
}

func (o *Orchestrator) batchSize() int {
	if o.cfg.BatchSize > 0 {
		return o.cfg.BatchSize
	}

	if o.turbo {
		return transfer.TurboBatchSize
	}
	return transfer.DefaultBatchSize
}

// Run executes the split. A non-nil error means the run never started; it
// is a *store.ConfigurationError or *store.PreconditionError. Once started,
// every failure is recorded in the returned Result.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	st := o.cfg.Store

	if err := st.Attach(ctx); err != nil {
		return nil, &store.PreconditionError{Op: "attach", Err: err}
	}

	defer func() {
		if err := st.Detach(); err != nil {
			o.logger.WithError(err).Warn("split_detach_failed")
		}
	}()

	metrics.RunActive.Set(1)
	defer metrics.RunActive.Set(0)

	res := &Result{RunID: o.runID, StartedAt: time.Now()}

	o.logger.WithFields(log.Fields{
		"source":  st.Name(),
		"mode":    o.cfg.Mode,
		"dry_run": o.cfg.DryRun,
		"move":    o.cfg.Move,
	}).Info("split_start")
	o.event("Starting %v split of %v", o.cfg.Mode, st.Name())

	o.healthCheck(ctx, res)

	items, err := o.enumerate(ctx, res)
	if err != nil {
		if ctx.Err() != nil {
			return o.finish(res, StateCancelled), nil
		}
		res.Errors = append(res.Errors, fmt.Sprintf("enumeration failed: %v", err))
		return o.finish(res, StateFailed), nil
	}

	o.setState(StateFiltering)
	if conflicts := o.cfg.Criteria.Conflicts(); len(conflicts) > 0 {
		msg := fmt.Sprintf("folders both included and excluded, excluding: %v", conflicts)
		res.Warnings = append(res.Warnings, msg)
		o.logger.WithField("folders", conflicts).Warn("split_filter_conflict")
	}

	items = filter.Apply(items, o.cfg.Criteria)
	res.Filtered = len(items)
	o.logger.WithFields(log.Fields{"enumerated": res.Enumerated, "filtered": res.Filtered}).Info("split_filtered")
	o.event("%v of %v items selected", res.Filtered, res.Enumerated)

	o.setState(StateGrouping)
	buckets, err := o.policy.Group(items)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("grouping failed: %v", err))
		return o.finish(res, StateFailed), nil
	}

	var totalBytes int64
	for i := range items {
		totalBytes += items[i].Size
	}
	o.progress.setTotals(len(items), totalBytes)
	o.progress.emit(true)

	for i := range buckets {
		if o.cfg.Mode == grouping.ModeMonth && buckets[i].Name == grouping.UndatedMonthBucket {
			w := fmt.Sprintf("%v undated items were grouped into %v", len(buckets[i].Items), grouping.UndatedMonthBucket)
			res.Warnings = append(res.Warnings, w)
			o.logger.WithField("items", len(buckets[i].Items)).Warn("split_undated_month_items")
		}
	}

	o.logger.WithField("buckets", len(buckets)).Info("split_grouped")
	o.event("Created %v groups", len(buckets))

	for i := range buckets {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		b := &buckets[i]
		res.TotalItems += len(b.Items)
		res.TotalBytes += b.Bytes()

		report := o.processBucket(ctx, b, res)
		res.Buckets = append(res.Buckets, report)

		switch {
		case report.Error != "":
			metrics.BucketsTotal.WithLabelValues("failed").Inc()
			res.Errors = append(res.Errors, report.Error)
		case report.Cancelled:
			metrics.BucketsTotal.WithLabelValues("cancelled").Inc()
		case report.DryRun:
			metrics.BucketsTotal.WithLabelValues("dry_run").Inc()
		default:
			metrics.BucketsTotal.WithLabelValues("completed").Inc()
		}

		if report.Cancelled {
			res.Cancelled = true
			break
		}
	}

	if res.Cancelled {
		return o.finish(res, StateCancelled), nil
	}
	return o.finish(res, StateCompleted), nil
}

func (o *Orchestrator) healthCheck(ctx context.Context, res *Result) {
	o.setState(StateHealthCheck)

	report, err := o.cfg.Store.HealthCheck(ctx)
	if err != nil {
		o.logger.WithError(err).Warn("split_health_check_failed")
		res.Warnings = append(res.Warnings, fmt.Sprintf("health check failed: %v", err))
		return
	}

	res.Health = &report
	res.Warnings = append(res.Warnings, report.Warnings...)
	res.Recommendations = append(res.Recommendations, report.Recommendations...)

	o.logger.WithFields(log.Fields{
		"size":        report.SizeBytes,
		"capacity":    report.CapacityBytes,
		"utilization": report.UtilizationPercent,
		"risk":        report.Risk,
	}).Info("split_health")

	for _, w := range report.Warnings {
		o.logger.WithField("warning", w).Warn("split_health_warning")
	}

	for _, r := range report.Recommendations {
		o.logger.WithField("recommendation", r).Info("split_health_recommendation")
	}

	if report.Risk == store.RiskCritical && o.turbo {
		o.turbo = false
		res.Warnings = append(res.Warnings, "turbo mode disabled due to critical store utilization")
		o.logger.Warn("split_turbo_disabled")
	}

	o.event("Store health: %v (%.1f%% used)", report.Risk, report.UtilizationPercent)
}

func (o *Orchestrator) enumerate(ctx context.Context, res *Result) ([]store.Item, error) {
	o.setState(StateEnumerating)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []store.Item
	err := o.cfg.Store.Enumerate(ctx, o.cfg.IncludeNonMail, func(it store.Item) error {
		items = append(items, it)
		if len(items)%enumerateCheckEvery == 0 {
			o.logger.WithField("count", len(items)).Debug("split_enumerate_progress")
			return ctx.Err()
		}
		return nil
	})

	res.Enumerated = len(items)
	metrics.ItemsEnumerated.Add(float64(len(items)))

	if err != nil {
		o.logger.WithError(err).WithField("count", len(items)).Warn("split_enumerate_stopped")
		return nil, err
	}

	o.logger.WithField("count", len(items)).Info("split_enumerated")
	return items, nil
}

func (o *Orchestrator) processBucket(ctx context.Context, b *grouping.Bucket, res *Result) (report BucketReport) {
	st := o.cfg.Store
	logger := o.logger.WithFields(log.Fields{"bucket": b.Name, "ordinal": b.Ordinal})

	report = BucketReport{
		Ordinal: b.Ordinal,
		Name:    b.Name,
		Items:   len(b.Items),
		Bytes:   b.Bytes(),
		DryRun:  o.cfg.DryRun,
	}

	path := store.JoinPath(o.cfg.OutputPath, store.DestinationName(st.Name(), b.Name, st.Extension()))
	report.Destination = path

	baseDone := o.progress.snapshot().Done
	baseBytes := o.progress.snapshot().DoneBytes

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("split_bucket_panic")
			report.Error = fmt.Sprintf("bucket %v: unexpected error: %v", b.Name, r)
		}
	}()

	logger.WithFields(log.Fields{"items": report.Items, "bytes": report.Bytes, "dest": path}).Info("split_bucket_start")

	if o.cfg.DryRun {
		o.progress.set(baseDone+report.Items, baseBytes+report.Bytes)
		o.event("[dry run] %v: %v items would go to %v", b.Name, report.Items, path)
		return report
	}

	o.setState(StateCreateDestination)
	ref, err := st.CreateDestination(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			report.Cancelled = true
			return report
		}

		logger.WithError(err).Error("split_destination_failed")
		report.Error = fmt.Sprintf("bucket %v: create destination %v: %v", b.Name, path, err)
		return report
	}

	report.Destination = ref
	report.CreatedAt = time.Now()
	res.Destinations = append(res.Destinations, ref)
	o.event("Created destination %v for %v", ref, b.Name)

	o.setState(StateTransferring)
	batcher := &transfer.Batcher{
		Store:     st,
		BatchSize: o.batchSize(),
		Quiet:     o.cfg.Quiet,
		Logger:    logger,
	}

	doneBefore, bytesBefore := baseDone, baseBytes
	onProgress := func(p transfer.Progress) {
		o.progress.set(doneBefore+p.Processed, bytesBefore+p.Bytes)
	}

	tr := batcher.Transfer(ctx, b.Items, ref, o.cfg.Move, onProgress)

	if tr.CapacityErr != nil && !tr.Cancelled && ctx.Err() == nil {
		tr = o.recoverCapacity(ctx, batcher, ref, tr, onProgress, logger)
	}

	report.Succeeded = tr.Succeeded
	report.Failed = len(tr.Failed)
	report.Batches = tr.Batches
	report.Elapsed = tr.Elapsed
	report.Cancelled = tr.Cancelled

	for _, f := range tr.Failed {
		f.Bucket = b.Name
		res.FailedItems = append(res.FailedItems, f)
		res.Errors = append(res.Errors, fmt.Sprintf("bucket %v: item %v: %v", b.Name, f.ID, f.Error))
	}

	if tr.CapacityErr != nil {
		report.Error = fmt.Sprintf("bucket %v: %v item(s) not transferred: %v", b.Name, len(tr.Remaining), tr.CapacityErr)
	}

	if o.cfg.Verify && !report.Cancelled {
		o.verify(ctx, ref, &report, res, logger)
	}

	logger.WithFields(log.Fields{
		"succeeded":     report.Succeeded,
		"failed":        report.Failed,
		"elapsed":       report.Elapsed,
		"items_per_sec": tr.ItemsPerSecond(),
	}).Info("split_bucket_complete")
	o.event("%v: %v/%v items transferred to %v", b.Name, report.Succeeded, report.Items, ref)

	return report
}

// recoverCapacity makes the single recovery pass allowed after a capacity
// error: reclaim space in the destination, then retry what is left.
func (o *Orchestrator) recoverCapacity(ctx context.Context, batcher *transfer.Batcher, ref string, tr transfer.Result, onProgress transfer.ProgressFunc, logger *log.Entry) transfer.Result {
	logger.WithFields(log.Fields{
		"remaining": len(tr.Remaining),
	}).WithError(tr.CapacityErr).Warn("split_capacity_recovery")
	o.event("Capacity exceeded in %v, attempting recovery", ref)

	if err := o.cfg.Store.Reclaim(ctx, ref); err != nil {
		metrics.CapacityRecoveries.WithLabelValues("reclaim_failed").Inc()
		logger.WithError(err).Error("split_reclaim_failed")
		tr.CapacityErr = fmt.Errorf("%w (reclaim failed: %v)", tr.CapacityErr, err)
		return tr
	}

	processed, bytes := tr.Processed, tr.Bytes
	retry := batcher.Transfer(ctx, tr.Remaining, ref, o.cfg.Move, func(p transfer.Progress) {
		p.Processed += processed
		p.Bytes += bytes
		onProgress(p)
	})

	tr.Merge(retry)

	if tr.CapacityErr != nil {
		metrics.CapacityRecoveries.WithLabelValues("failed").Inc()
		logger.WithError(tr.CapacityErr).Error("split_capacity_recovery_failed")
	} else {
		metrics.CapacityRecoveries.WithLabelValues("success").Inc()
		logger.Info("split_capacity_recovered")
	}

	return tr
}

func (o *Orchestrator) verify(ctx context.Context, ref string, report *BucketReport, res *Result, logger *log.Entry) {
	n, err := o.cfg.Store.CountItems(ctx, ref)
	if err != nil {
		logger.WithError(err).Warn("split_verify_failed")
		res.Warnings = append(res.Warnings, fmt.Sprintf("%v: verification failed: %v", report.Name, err))
		return
	}

	if n != report.Succeeded {
		logger.WithFields(log.Fields{"expected": report.Succeeded, "actual": n}).Warn("split_verify_mismatch")
		res.Warnings = append(res.Warnings, fmt.Sprintf("%v: expected %v items in %v, found %v", report.Name, report.Succeeded, ref, n))
		return
	}

	logger.WithField("count", n).Debug("split_verify_ok")
}

func (o *Orchestrator) finish(res *Result, state State) *Result {
	o.setState(StateFinalizing)

	res.Cancelled = res.Cancelled || state == StateCancelled
	res.FinishedAt = time.Now()
	o.progress.emit(true)

	res.State = state
	o.setState(state)
	metrics.RunsTotal.WithLabelValues(state.String()).Inc()

	o.logger.WithFields(log.Fields{
		"state":        state,
		"destinations": len(res.Destinations),
		"items":        res.TotalItems,
		"bytes":        res.TotalBytes,
		"errors":       len(res.Errors),
		"elapsed":      res.FinishedAt.Sub(res.StartedAt),
	}).Info("split_finished")
	o.event("Split %v: %v items in %v destinations, %v errors", state, res.TotalItems, len(res.Destinations), len(res.Errors))

	return res
}
