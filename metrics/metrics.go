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

// Package metrics exposes Prometheus instrumentation for split runs.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Run metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsplit_runs_total",
			Help: "Total number of split runs by terminal state",
		},
		[]string{"state"},
	)

	RunActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailsplit_run_active",
			Help: "Whether a split run is currently active",
		},
	)

	ItemsEnumerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsplit_items_enumerated_total",
			Help: "Total number of items enumerated from source stores",
		},
	)

	BucketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsplit_buckets_total",
			Help: "Total number of buckets processed by outcome",
		},
		[]string{"outcome"},
	)

	CapacityRecoveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsplit_capacity_recoveries_total",
			Help: "Total number of capacity recovery passes by result",
		},
		[]string{"result"},
	)
)

// Transfer metrics
var (
	ItemsTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsplit_items_transferred_total",
			Help: "Total number of item transfers by result",
		},
		[]string{"result"},
	)

	BytesTransferred = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsplit_bytes_transferred_total",
			Help: "Total number of bytes successfully transferred",
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailsplit_batch_duration_seconds",
			Help:    "Duration of transfer batches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	StrategyAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsplit_strategy_attempts_total",
			Help: "Total number of transfer strategy attempts by strategy and result",
		},
		[]string{"strategy", "result"},
	)
)

// Listen binds the metrics address for Serve.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Serve exposes the default registry on l until ctx is cancelled. l is
// closed when Serve returns.
func Serve(ctx context.Context, l net.Listener, path string) error {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics_shutdown_failed")
		}
	}()

	log.WithFields(log.Fields{"addr": l.Addr().String(), "path": path}).Info("metrics_listening")
	if err := server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}

	return nil
}
