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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
	"github.com/vs49688/mailsplit/grouping"
	"github.com/vs49688/mailsplit/store"
)

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"500MB":  500 * 1024 * 1024,
		"500":    500 * 1024 * 1024,
		"2GB":    2 * 1024 * 1024 * 1024,
		"2 gb":   2 * 1024 * 1024 * 1024,
		"0.5TB":  512 * 1024 * 1024 * 1024,
		"64KB":   64 * 1024,
		"1.5G":   1536 * 1024 * 1024,
		" 10mb ": 10 * 1024 * 1024,
	}

	for in, want := range cases {
		got, err := ParseSize(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "abc", "5XB", "0", "-5MB"} {
		_, err := ParseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("", time.UTC)
	assert.NoError(t, err)
	assert.Nil(t, r)

	r, err = ParseDateRange("2021-01-01", time.UTC)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), *r.Start)
	assert.Nil(t, r.End)

	r, err = ParseDateRange("2021-01-01:2021-06-30", time.UTC)
	assert.NoError(t, err)
	last := time.Date(2021, 6, 30, 23, 59, 59, 0, time.UTC)
	assert.True(t, r.Contains(&last))
	next := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, r.Contains(&next))

	r, err = ParseDateRange(":2021-06-30", time.UTC)
	assert.NoError(t, err)
	assert.Nil(t, r.Start)
	assert.NotNil(t, r.End)

	for _, bad := range []string{"2021-13-01", "2021-01-01:nope", "2021-06-30:2021-01-01"} {
		_, err := ParseDateRange(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestParseList(t *testing.T) {
	assert.Nil(t, ParseList(""))
	assert.Nil(t, ParseList(" , ,"))
	assert.Equal(t, []string{"Inbox", "Sent Items"}, ParseList("Inbox, Sent Items,"))
}

func runWithFlags(t *testing.T, args ...string) *SplitConfig {
	cfg := &SplitConfig{}
	app := &cli.App{
		Name:  "test",
		Flags: cfg.Parameters(),
		Action: func(ctx *cli.Context) error {
			return LoadFile(ctx, cfg.ConfigPath)
		},
	}

	if !assert.NoError(t, app.Run(append([]string{"test"}, args...))) {
		t.FailNow()
	}
	return cfg
}

func TestLoadFile(t *testing.T) {
	cfg := runWithFlags(t, "--config", "testdata/split.toml", "--mode", "month")

	assert.Equal(t, "month", cfg.Mode)
	assert.Equal(t, "Inbox, Archive", cfg.IncludeFolders)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, time.Second, cfg.Throttle)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, "imaps://imap.example.com/Archive", cfg.Source.URL)
	assert.Equal(t, "testdata/testpass.txt", cfg.Source.PasswordFile)
	assert.Equal(t, "microsoft", cfg.Source.OAuth2.Provider)
	assert.Equal(t, "LOGIN", cfg.Source.AuthMethod)
	assert.Equal(t, "Splits", cfg.Output)
}

func TestLoadFileMissing(t *testing.T) {
	cfg := &SplitConfig{}
	app := &cli.App{
		Name:   "test",
		Flags:  cfg.Parameters(),
		Action: func(ctx *cli.Context) error { return LoadFile(ctx, cfg.ConfigPath) },
	}

	assert.Error(t, app.Run([]string{"test", "--config", "testdata/nope.toml"}))
}

func TestResolve(t *testing.T) {
	cfg := runWithFlags(t,
		"--source-url", "imap://localhost:1143/Archive",
		"--source-username", "username",
		"--source-password", "password",
		"--mode", "size",
		"--size", "2GB",
		"--exclude-folders", "Junk",
		"--sender-domains", "@Example.com",
		"--date-range", "2020-01-01:2020-12-31",
		"--turbo",
	)

	sc, err := cfg.Resolve()
	assert.NoError(t, err)
	assert.Equal(t, grouping.ModeSize, sc.Mode)
	assert.Equal(t, int64(2*1024*1024*1024), sc.MaxBytes)
	assert.True(t, sc.Criteria.ExcludeFolders.Contains("junk"))
	assert.True(t, sc.Criteria.SenderDomains.Contains("example.com"))
	assert.True(t, sc.Criteria.DateRange.IsSet())
	assert.True(t, sc.Turbo)
	assert.Equal(t, "Splits", sc.OutputPath)

	storeCfg, err := cfg.ResolveStore()
	assert.NoError(t, err)
	assert.Equal(t, "localhost:1143", storeCfg.Source.HostPort)
	assert.Equal(t, "Archive", storeCfg.Source.Mailbox)
	assert.Nil(t, storeCfg.Dest)
	assert.Equal(t, "Splits", storeCfg.OutputPath)
}

func TestResolveErrors(t *testing.T) {
	t.Run("no_source", func(t *testing.T) {
		cfg := DefaultConfig()
		_, err := cfg.ResolveStore()
		assert.ErrorIs(t, err, store.ErrInvalidConfiguration)
	})

	t.Run("bad_mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Mode = "weekly"
		_, err := cfg.Resolve()
		assert.ErrorIs(t, err, store.ErrInvalidConfiguration)
	})

	t.Run("bad_size", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Size = "lots"
		_, err := cfg.Resolve()
		assert.ErrorIs(t, err, store.ErrInvalidConfiguration)
	})

	t.Run("bad_date", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DateRange = "yesterday"
		_, err := cfg.Resolve()
		assert.ErrorIs(t, err, store.ErrInvalidConfiguration)
	})

	t.Run("dest", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source = getTestIMAPConfig()
		cfg.Dest = getTestIMAPConfig()
		cfg.Dest.URL = "imaps://other.example.com/"
		cfg.Capacity = "10GB"

		storeCfg, err := cfg.ResolveStore()
		assert.NoError(t, err)
		if assert.NotNil(t, storeCfg.Dest) {
			assert.Equal(t, "other.example.com:993", storeCfg.Dest.HostPort)
		}
		assert.Equal(t, int64(10*1024*1024*1024), storeCfg.Capacity)
	})
}
