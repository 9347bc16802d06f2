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
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/vs49688/mailsplit/cmd/config"
	"github.com/vs49688/mailsplit/metrics"
	"github.com/vs49688/mailsplit/split"
	"github.com/vs49688/mailsplit/store"
	"github.com/vs49688/mailsplit/store/imapstore"
	"github.com/vs49688/mailsplit/summary"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := config.DefaultConfig()
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "split",
		Usage: "Split a mailbox into smaller mailboxes",
		Flags: cfg.Parameters(),
		Before: func(context *cli.Context) error {
			return config.LoadFile(context, cfg.ConfigPath)
		},
		Action: func(context *cli.Context) error { return run(context, &cfg) },
	})
	return app
}

func logProgress(done int, total int, doneBytes int64, totalBytes int64) {
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}

	log.WithFields(log.Fields{
		"done":        done,
		"total":       total,
		"percent":     pct,
		"done_bytes":  humanize.IBytes(uint64(doneBytes)),
		"total_bytes": humanize.IBytes(uint64(totalBytes)),
	}).Info("progress")
}

func logEvent(e split.Event) {
	log.WithFields(log.Fields{
		"run_id": e.RunID,
		"state":  e.State,
	}).Debug(e.String())
}

// watchSignals cancels the run on the first signal and exits on the second.
func watchSignals(ctx context.Context, run *split.Run) error {
	sigchan := make(chan os.Signal, 10)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigchan)

	sigcount := 0
	for {
		select {
		case sig := <-sigchan:
			log.WithFields(log.Fields{"signal": sig, "count": sigcount}).Trace("caught_signal")

			sigcount += 1
			if sigcount > 1 {
				log.WithFields(log.Fields{"signal": sig}).Warn("received_interrupt_force_exit")
				os.Exit(1)
			}
			log.WithFields(log.Fields{"signal": sig}).Info("received_interrupt")

			run.Cancel()
		case <-ctx.Done():
			return nil
		}
	}
}

func report(res *split.Result) {
	for _, w := range res.Warnings {
		log.Warn(w)
	}

	for _, r := range res.Recommendations {
		log.WithField("recommendation", r).Info("split_recommendation")
	}

	for _, e := range res.Errors {
		log.Error(e)
	}

	for _, b := range res.Buckets {
		log.WithFields(log.Fields{
			"bucket":      b.Name,
			"destination": b.Destination,
			"items":       b.Items,
			"bytes":       humanize.IBytes(uint64(b.Bytes)),
			"succeeded":   b.Succeeded,
			"failed":      b.Failed,
			"elapsed":     b.Elapsed,
		}).Info("split_bucket_report")
	}

	log.WithFields(log.Fields{
		"run_id":       res.RunID,
		"state":        res.State,
		"destinations": len(res.Destinations),
		"items":        res.TotalItems,
		"bytes":        humanize.IBytes(uint64(res.TotalBytes)),
		"succeeded":    res.Succeeded(),
		"errors":       len(res.Errors),
		"cancelled":    res.Cancelled,
		"elapsed":      res.FinishedAt.Sub(res.StartedAt),
	}).Info("split_finished")
}

func run(ctx *cli.Context, cfg *config.SplitConfig) error {
	cfg.LogConfig.Apply()

	log.WithFields(log.Fields{
		"source_url":         cfg.Source.URL,
		"source_auth_method": cfg.Source.AuthMethod,
		"source_username":    cfg.Source.Username,
		"source_transport":   cfg.Source.Transport,
		"dest_url":           cfg.Dest.URL,
		"dest_username":      cfg.Dest.Username,
		"output":             cfg.Output,
		"mode":               cfg.Mode,
		"size":               cfg.Size,
		"dry_run":            cfg.DryRun,
		"verify":             cfg.Verify,
		"move":               cfg.Move,
		"turbo":              cfg.Turbo,
		"throttle":           cfg.Throttle,
		"summary":            cfg.Summary,
		"metrics_listen":     cfg.MetricsListen,
		"log_level":          cfg.LogLevel,
		"log_format":         cfg.LogFormat,
	}).Info("starting")

	storeCfg, err := cfg.ResolveStore()
	if err != nil {
		return err
	}
	storeCfg.Logger = log.WithField("component", "imapstore")

	splitCfg, err := cfg.Resolve()
	if err != nil {
		return err
	}
	splitCfg.Store = imapstore.NewStore(storeCfg)
	splitCfg.OnProgress = logProgress
	splitCfg.OnEvent = logEvent
	splitCfg.Logger = log.WithField("component", "split")

	var metricsListener net.Listener
	if cfg.MetricsListen != "" {
		if metricsListener, err = metrics.Listen(cfg.MetricsListen); err != nil {
			return store.NewConfigurationError("metrics-listen", "%v", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx.Context)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	runner := &split.Runner{}
	r, err := runner.Submit(runCtx, splitCfg)
	if err != nil {
		if metricsListener != nil {
			_ = metricsListener.Close()
		}
		return err
	}

	if metricsListener != nil {
		g.Go(func() error {
			if err := metrics.Serve(runCtx, metricsListener, "/metrics"); err != nil {
				log.WithError(err).Error("metrics_serve_failed")
			}
			return nil
		})
	}

	g.Go(func() error { return watchSignals(runCtx, r) })

	var res *split.Result
	g.Go(func() error {
		defer cancel()

		var err error
		res, err = r.Wait()
		return err
	})

	err = g.Wait()
	if res == nil {
		return err
	}

	report(res)

	if cfg.Summary != "" {
		if err := summary.Export(cfg.Summary, res); err != nil {
			log.WithError(err).Error("summary_export_failed")
		}
	}

	if err != nil {
		if store.IsFatal(err) {
			return err
		}
		log.WithError(err).Error("split_aux_failed")
	}

	return nil
}
