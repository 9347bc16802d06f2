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
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var (
	errInvalidScheme = errors.New("invalid uri scheme")
)

type IMAPConfig struct {
	URL               string
	AuthMethod        string
	Username          string
	Password          string
	PasswordFile      string
	SystemdCredential string
	TLSSkipVerify     bool
	Transport         string
	MaxRetries        int
	Timeout           time.Duration
	Debug             bool
	OAuth2            OAuth2Config
}

type OAuth2Config struct {
	Provider     string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string

	Config oauth2.Config
}

type LogConfig struct {
	LogLevel  string
	LogFormat string
}

type SplitConfig struct {
	ConfigPath string

	Source IMAPConfig
	// Dest is only used if its URL is set, otherwise destinations are
	// created in the source account.
	Dest IMAPConfig

	Name           string
	Output         string
	Mode           string
	Size           string
	Capacity       string
	IncludeFolders string
	ExcludeFolders string
	SenderDomains  string
	DateRange      string
	DryRun         bool
	Verify         bool
	Move           bool
	Quiet          bool
	Turbo          bool
	IncludeNonMail bool
	Throttle       time.Duration
	BatchSize      int
	Summary        string
	MetricsListen  string

	LogConfig
}

type HealthConfig struct {
	ConfigPath string

	Source   IMAPConfig
	Capacity string

	LogConfig
}
