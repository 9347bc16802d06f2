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

package oauthlogin

import (
	"fmt"
	"os"

	"github.com/emersion/go-oauthdialog"
	"github.com/emersion/go-sasl"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/vs49688/mailsplit/cmd/config"
)

type loginConfig struct {
	OAuth2    config.OAuth2Config
	TokenFile string
}

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &loginConfig{OAuth2: config.DefaultOAuth2Config()}

	flags := cfg.OAuth2.Parameters()
	flags = append(flags, &cli.StringFlag{
		Name:        "token-file",
		Usage:       "write the refresh token to this file (mode 0600) instead of the log",
		EnvVars:     []string{"MAILSPLIT_OAUTH2_TOKEN_FILE"},
		Destination: &cfg.TokenFile,
	})

	app.Commands = append(app.Commands, &cli.Command{
		Name:   "oauthlogin",
		Usage:  "Generate an OAuth2 refresh token for an IMAP account",
		Flags:  flags,
		Action: func(context *cli.Context) error { return oauthlogin(context, cfg) },
	})
	return app
}

func writeToken(path string, token string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(f, token); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

func oauthlogin(ctx *cli.Context, cfg *loginConfig) error {
	oc := &cfg.OAuth2
	if err := oc.Resolve(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"provider":  oc.Provider,
		"auth_url":  oc.Config.Endpoint.AuthURL,
		"token_url": oc.Config.Endpoint.TokenURL,
		"client_id": oc.Config.ClientID,
		"scopes":    oc.Config.Scopes,
	}).Info("using_provider")

	code, err := oauthdialog.Open(&oc.Config)
	if err != nil {
		return err
	}

	tok, err := oc.Config.Exchange(ctx.Context, code, oauth2.AccessTypeOffline)
	if err != nil {
		return err
	}

	if tok.RefreshToken == "" {
		return fmt.Errorf("provider %v returned no refresh token", oc.Provider)
	}

	if cfg.TokenFile != "" {
		if err := writeToken(cfg.TokenFile, tok.RefreshToken); err != nil {
			return err
		}

		log.WithField("path", cfg.TokenFile).Info("token_written")
		log.Infof("You may now pass this via:\n")
		log.Infof("  --{source,dest}-auth-method=%v, and\n", sasl.OAuthBearer)
		log.Infof("  --{source,dest}-password-file=%v\n", cfg.TokenFile)
		return nil
	}

	log.Infof("Your OAuth2 refresh token is:\n")
	log.Info()
	log.Infof("  %v\n", tok.RefreshToken)
	log.Info()
	log.Infof("You may now pass this via:\n")
	log.Infof("  --{source,dest}-auth-method=%v (MAILSPLIT_{SOURCE,DEST}_AUTH_METHOD=%v),\n", sasl.OAuthBearer, sasl.OAuthBearer)
	log.Infof("  --{source,dest}-password=<token> (MAILSPLIT_{SOURCE,DEST}_PASSWORD=<token>), and\n")
	log.Infof("  --{source,dest}-oauth2-client-id=%v\n", oc.ClientID)
	log.Info()
	log.Infof("> Keep It Secret, Keep It Safe\n")
	log.Infof(">   - Gandalf\n")

	return nil
}
