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

package health

import (
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/mailsplit/cmd/config"
	"github.com/vs49688/mailsplit/store"
	"github.com/vs49688/mailsplit/store/imapstore"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := config.DefaultHealthConfig()
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "health",
		Usage: "Report the size and quota risk of a mailbox",
		Flags: cfg.Parameters(),
		Before: func(context *cli.Context) error {
			return config.LoadFile(context, cfg.ConfigPath)
		},
		Action: func(context *cli.Context) error { return health(context, &cfg) },
	})
	return app
}

func health(ctx *cli.Context, cfg *config.HealthConfig) error {
	cfg.LogConfig.Apply()

	storeCfg, err := cfg.ResolveStore()
	if err != nil {
		return err
	}
	storeCfg.Logger = log.WithField("component", "imapstore")

	st := imapstore.NewStore(storeCfg)
	if err := st.Attach(ctx.Context); err != nil {
		return &store.PreconditionError{Op: "attach", Err: err}
	}

	defer func() {
		if err := st.Detach(); err != nil {
			log.WithError(err).Warn("health_detach_failed")
		}
	}()

	rep, err := st.HealthCheck(ctx.Context)
	if err != nil {
		return err
	}

	for _, w := range rep.Warnings {
		log.Warn(w)
	}

	for _, r := range rep.Recommendations {
		log.WithField("recommendation", r).Info("health_recommendation")
	}

	log.WithFields(log.Fields{
		"name":        st.Name(),
		"format":      rep.Format,
		"size":        humanize.IBytes(uint64(rep.SizeBytes)),
		"capacity":    humanize.IBytes(uint64(rep.CapacityBytes)),
		"utilization": rep.UtilizationPercent,
		"risk":        rep.Risk,
	}).Info("health_report")

	return nil
}
