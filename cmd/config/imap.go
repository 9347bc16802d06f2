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

package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/vs49688/mailsplit/imap"
	"github.com/vs49688/mailsplit/imap/client"
	"github.com/vs49688/mailsplit/imap/persistentclient"
)

func DefaultIMAPConfig() IMAPConfig {
	return IMAPConfig{
		AuthMethod:    "LOGIN",
		TLSSkipVerify: false,
		Transport:     "persistent",
		MaxRetries:    5,
		Debug:         false,
		OAuth2:        DefaultOAuth2Config(),
	}
}

func (cfg *IMAPConfig) makeIMAPParameters(lowerPrefix string, required bool) []cli.Flag {
	def := DefaultIMAPConfig()
	upperPrefix := strings.ToUpper(lowerPrefix)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-url", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap url", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_URL", upperPrefix)},
			Destination: &cfg.URL,
			Required:    required,
			Value:       def.URL,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-auth-method", lowerPrefix),
			Usage:       fmt.Sprintf("%v auth method (LOGIN, PLAIN, OAUTHBEARER)", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_AUTH_METHOD", upperPrefix)},
			Destination: &cfg.AuthMethod,
			Value:       def.AuthMethod,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-username", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap username", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_USERNAME", upperPrefix)},
			Destination: &cfg.Username,
			Value:       def.Username,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-password", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap password, or refresh token for OAUTHBEARER", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_PASSWORD", upperPrefix)},
			Destination: &cfg.Password,
			Value:       def.Password,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-password-file", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap password file", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_PASSWORD_FILE", upperPrefix)},
			Destination: &cfg.PasswordFile,
			Value:       def.PasswordFile,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-systemd-credential", lowerPrefix),
			Usage:       fmt.Sprintf("name of the systemd credential holding the %v imap password", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_SYSTEMD_CREDENTIAL", upperPrefix)},
			Destination: &cfg.SystemdCredential,
			Value:       def.SystemdCredential,
		},
		&cli.BoolFlag{
			Name:        fmt.Sprintf("%v-tls-skip-verify", lowerPrefix),
			Usage:       fmt.Sprintf("skip %v tls verification", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_TLS_SKIP_VERIFY", upperPrefix)},
			Destination: &cfg.TLSSkipVerify,
			Value:       def.TLSSkipVerify,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-transport", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap transport (persistent, standard)", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_TRANSPORT", upperPrefix)},
			Destination: &cfg.Transport,
			Value:       def.Transport,
		},
		&cli.IntFlag{
			Name:        fmt.Sprintf("%v-max-retries", lowerPrefix),
			Usage:       fmt.Sprintf("give up on %v after this many failed reconnects (0 = never)", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_MAX_RETRIES", upperPrefix)},
			Destination: &cfg.MaxRetries,
			Value:       def.MaxRetries,
		},
		&cli.DurationFlag{
			Name:        fmt.Sprintf("%v-timeout", lowerPrefix),
			Usage:       fmt.Sprintf("%v dial and command timeout (0 = none)", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_TIMEOUT", upperPrefix)},
			Destination: &cfg.Timeout,
			Value:       def.Timeout,
		},
		&cli.BoolFlag{
			Name:        fmt.Sprintf("%v-debug", lowerPrefix),
			Usage:       fmt.Sprintf("display %v debug info", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILSPLIT_%v_DEBUG", upperPrefix)},
			Destination: &cfg.Debug,
			Value:       def.Debug,
		},
	}

	return append(flags, cfg.OAuth2.makeParameters(lowerPrefix+"-oauth2", "MAILSPLIT_"+upperPrefix+"_OAUTH2")...)
}

func extractUrl(u *url.URL) (string, string, bool, error) {
	var defaultPort string
	var useTLS bool
	switch strings.ToLower(u.Scheme) {
	case "imap":
		defaultPort = "143"
		useTLS = false
	case "imaps":
		defaultPort = "993"
		useTLS = true
	default:
		return "", "", false, errInvalidScheme
	}

	host := u.Hostname()
	port := u.Port()

	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(host, port), strings.TrimPrefix(u.Path, "/"), useTLS, nil
}

func readSystemdCredential(name string) (string, error) {
	dir := os.Getenv("CREDENTIALS_DIRECTORY")
	if dir == "" {
		return "", fmt.Errorf("systemd credential %q requested but $CREDENTIALS_DIRECTORY is unset", name)
	}

	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid systemd credential name %q", name)
	}

	pass, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(pass)), nil
}

func (cfg *IMAPConfig) resolvePassword() (string, error) {
	switch {
	case cfg.Password != "":
		return cfg.Password, nil
	case cfg.PasswordFile != "":
		pass, err := os.ReadFile(cfg.PasswordFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(pass)), nil
	case cfg.SystemdCredential != "":
		return readSystemdCredential(cfg.SystemdCredential)
	default:
		return "", fmt.Errorf("one of password, password file or systemd credential is required")
	}
}

func (cfg *IMAPConfig) validateUserPass() (string, string, error) {
	if cfg.Username == "" {
		return "", "", fmt.Errorf("username is required when using %v auth", cfg.AuthMethod)
	}

	password, err := cfg.resolvePassword()
	if err != nil {
		return "", "", err
	}

	return cfg.Username, password, nil
}

func (cfg *IMAPConfig) resolveAuth() (imap.Authenticator, error) {
	method := strings.ToUpper(cfg.AuthMethod)

	switch method {
	case "LOGIN", "NORMAL":
		user, pass, err := cfg.validateUserPass()
		if err != nil {
			return nil, err
		}
		return imap.NewNormalAuthenticator(user, pass), nil
	case sasl.Plain:
		user, pass, err := cfg.validateUserPass()
		if err != nil {
			return nil, err
		}
		return imap.NewSASLAuthenticator(sasl.NewPlainClient("", user, pass)), nil
	case sasl.OAuthBearer:
		user, token, err := cfg.validateUserPass()
		if err != nil {
			return nil, err
		}

		if err := cfg.OAuth2.Resolve(); err != nil {
			return nil, err
		}

		ts := cfg.OAuth2.Config.TokenSource(context.Background(), &oauth2.Token{RefreshToken: token})
		return imap.NewOAuthBearerAuthenticator(user, ts), nil
	default:
		return nil, fmt.Errorf("unsupported auth method: %v", cfg.AuthMethod)
	}
}

func (cfg *IMAPConfig) Resolve() (imap.ConnectionConfig, imap.Factory, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return imap.ConnectionConfig{}, nil, err
	}

	hostPort, mailbox, wantTLS, err := extractUrl(u)
	if err != nil {
		return imap.ConnectionConfig{}, nil, err
	}

	auth, err := cfg.resolveAuth()
	if err != nil {
		return imap.ConnectionConfig{}, nil, err
	}

	connConfig := imap.ConnectionConfig{
		HostPort:  hostPort,
		Auth:      auth,
		Mailbox:   mailbox,
		TLS:       wantTLS,
		TLSConfig: nil,
		Debug:     cfg.Debug,
	}

	if cfg.TLSSkipVerify {
		// #nosec G402
		connConfig.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var factory imap.Factory
	if cfg.Transport == "persistent" {
		factory = persistentclient.Factory{MaxRetries: cfg.MaxRetries, Timeout: cfg.Timeout}
	} else {
		factory = client.Factory{Timeout: cfg.Timeout}
	}

	return connConfig, factory, nil
}
