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
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

type oauthProvider struct {
	Endpoint oauth2.Endpoint
	Scopes   []string
}

var oauthProviders = map[string]oauthProvider{
	"google": {
		Endpoint: endpoints.Google,
		Scopes:   []string{"https://mail.google.com/"},
	},
	"microsoft": {
		Endpoint: endpoints.AzureAD("common"),
		Scopes:   []string{"https://outlook.office.com/IMAP.AccessAsUser.All", "offline_access"},
	},
}

func DefaultOAuth2Config() OAuth2Config {
	return OAuth2Config{
		Provider: "google",
	}
}

func (cfg *OAuth2Config) makeParameters(flagPrefix string, envPrefix string) []cli.Flag {
	def := DefaultOAuth2Config()

	return []cli.Flag{
		&cli.StringFlag{
			Name:        flagPrefix + "-provider",
			Usage:       "oauth2 provider (google, microsoft, custom)",
			EnvVars:     []string{envPrefix + "_PROVIDER"},
			Destination: &cfg.Provider,
			Value:       def.Provider,
		},
		&cli.StringFlag{
			Name:        flagPrefix + "-client-id",
			Usage:       "oauth2 client id",
			EnvVars:     []string{envPrefix + "_CLIENT_ID"},
			Destination: &cfg.ClientID,
			Value:       def.ClientID,
		},
		&cli.StringFlag{
			Name:        flagPrefix + "-client-secret",
			Usage:       "oauth2 client secret",
			EnvVars:     []string{envPrefix + "_CLIENT_SECRET"},
			Destination: &cfg.ClientSecret,
			Value:       def.ClientSecret,
		},
		&cli.StringFlag{
			Name:        flagPrefix + "-auth-url",
			Usage:       "oauth2 authorization url, for custom providers",
			EnvVars:     []string{envPrefix + "_AUTH_URL"},
			Destination: &cfg.AuthURL,
			Value:       def.AuthURL,
		},
		&cli.StringFlag{
			Name:        flagPrefix + "-token-url",
			Usage:       "oauth2 token url, for custom providers",
			EnvVars:     []string{envPrefix + "_TOKEN_URL"},
			Destination: &cfg.TokenURL,
			Value:       def.TokenURL,
		},
	}
}

func (cfg *OAuth2Config) Parameters() []cli.Flag {
	return cfg.makeParameters("oauth2", "MAILSPLIT_OAUTH2")
}

// Resolve builds the oauth2.Config for the selected provider.
func (cfg *OAuth2Config) Resolve() error {
	if cfg.ClientID == "" {
		return fmt.Errorf("oauth2 client id is required")
	}

	provider := strings.ToLower(cfg.Provider)
	c := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
	}

	if p, ok := oauthProviders[provider]; ok {
		c.Endpoint = p.Endpoint
		if len(c.Scopes) == 0 {
			c.Scopes = p.Scopes
		}
	} else if provider == "custom" {
		if cfg.AuthURL == "" || cfg.TokenURL == "" {
			return fmt.Errorf("custom oauth2 provider requires both auth and token urls")
		}
		c.Endpoint = oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}
	} else {
		return fmt.Errorf("unknown oauth2 provider: %v", cfg.Provider)
	}

	cfg.Config = c
	return nil
}
