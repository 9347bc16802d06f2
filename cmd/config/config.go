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
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/mailsplit/filter"
	"github.com/vs49688/mailsplit/grouping"
	"github.com/vs49688/mailsplit/split"
	"github.com/vs49688/mailsplit/store"
	"github.com/vs49688/mailsplit/store/imapstore"
)

func DefaultLogConfig() LogConfig {
	return LogConfig{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func DefaultConfig() SplitConfig {
	return SplitConfig{
		Source:    DefaultIMAPConfig(),
		Dest:      DefaultIMAPConfig(),
		Output:    "Splits",
		Mode:      string(grouping.ModeSize),
		Throttle:  split.DefaultProgressInterval,
		LogConfig: DefaultLogConfig(),
	}
}

func (cfg *LogConfig) Parameters() []cli.Flag {
	def := DefaultLogConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "logging level",
			EnvVars:     []string{"MAILSPLIT_LOG_LEVEL"},
			Destination: &cfg.LogLevel,
			Value:       def.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "logging format (text/json)",
			EnvVars:     []string{"MAILSPLIT_LOG_FORMAT"},
			Destination: &cfg.LogFormat,
			Value:       def.LogFormat,
		},
	}
}

// Apply configures the standard logger.
func (cfg *LogConfig) Apply() {
	logLevel, err := log.ParseLevel(cfg.LogLevel)
	if err == nil {
		log.SetLevel(logLevel)
	}

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func configFileFlag(dest *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "optional TOML file supplying values for flags not given on the command line",
		EnvVars:     []string{"MAILSPLIT_CONFIG"},
		Destination: dest,
	}
}

func (cfg *SplitConfig) Parameters() []cli.Flag {
	def := DefaultConfig()

	var flags []cli.Flag
	flags = append(flags, configFileFlag(&cfg.ConfigPath))
	flags = append(flags, cfg.Source.makeIMAPParameters("source", false)...)
	flags = append(flags, cfg.Dest.makeIMAPParameters("dest", false)...)
	flags = append(flags, cfg.LogConfig.Parameters()...)
	flags = append(flags, []cli.Flag{
		&cli.StringFlag{
			Name:        "name",
			Usage:       "source display name used in destination names (default: last segment of the source mailbox)",
			EnvVars:     []string{"MAILSPLIT_NAME"},
			Destination: &cfg.Name,
			Value:       def.Name,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "mailbox under which destinations are created",
			EnvVars:     []string{"MAILSPLIT_OUTPUT"},
			Destination: &cfg.Output,
			Value:       def.Output,
		},
		&cli.StringFlag{
			Name:        "mode",
			Aliases:     []string{"m"},
			Usage:       "grouping mode (size, year, month, folder)",
			EnvVars:     []string{"MAILSPLIT_MODE"},
			Destination: &cfg.Mode,
			Value:       def.Mode,
		},
		&cli.StringFlag{
			Name:        "size",
			Usage:       "maximum destination size for size mode (KB, MB, GB, TB; bare numbers are MB)",
			EnvVars:     []string{"MAILSPLIT_SIZE"},
			Destination: &cfg.Size,
			Value:       def.Size,
		},
		&cli.StringFlag{
			Name:        "capacity",
			Usage:       "source account quota for the health check (default: inferred)",
			EnvVars:     []string{"MAILSPLIT_CAPACITY"},
			Destination: &cfg.Capacity,
			Value:       def.Capacity,
		},
		&cli.StringFlag{
			Name:        "include-folders",
			Usage:       "comma list of top-level folders to include",
			EnvVars:     []string{"MAILSPLIT_INCLUDE_FOLDERS"},
			Destination: &cfg.IncludeFolders,
			Value:       def.IncludeFolders,
		},
		&cli.StringFlag{
			Name:        "exclude-folders",
			Usage:       "comma list of top-level folders to exclude",
			EnvVars:     []string{"MAILSPLIT_EXCLUDE_FOLDERS"},
			Destination: &cfg.ExcludeFolders,
			Value:       def.ExcludeFolders,
		},
		&cli.StringFlag{
			Name:        "sender-domains",
			Usage:       "comma list of sender domains to include",
			EnvVars:     []string{"MAILSPLIT_SENDER_DOMAINS"},
			Destination: &cfg.SenderDomains,
			Value:       def.SenderDomains,
		},
		&cli.StringFlag{
			Name:        "date-range",
			Usage:       "date range filter YYYY-MM-DD[:YYYY-MM-DD], end inclusive",
			EnvVars:     []string{"MAILSPLIT_DATE_RANGE"},
			Destination: &cfg.DateRange,
			Value:       def.DateRange,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "enumerate and plan only",
			EnvVars:     []string{"MAILSPLIT_DRY_RUN"},
			Destination: &cfg.DryRun,
			Value:       def.DryRun,
		},
		&cli.BoolFlag{
			Name:        "verify",
			Usage:       "compare destination counts after each bucket",
			EnvVars:     []string{"MAILSPLIT_VERIFY"},
			Destination: &cfg.Verify,
			Value:       def.Verify,
		},
		&cli.BoolFlag{
			Name:        "move",
			Usage:       "move messages instead of copying them",
			EnvVars:     []string{"MAILSPLIT_MOVE"},
			Destination: &cfg.Move,
			Value:       def.Move,
		},
		&cli.BoolFlag{
			Name:        "quiet",
			Aliases:     []string{"q"},
			Usage:       "suppress per-message logs",
			EnvVars:     []string{"MAILSPLIT_QUIET"},
			Destination: &cfg.Quiet,
			Value:       def.Quiet,
		},
		&cli.BoolFlag{
			Name:        "turbo",
			Usage:       "use larger transfer batches",
			EnvVars:     []string{"MAILSPLIT_TURBO"},
			Destination: &cfg.Turbo,
			Value:       def.Turbo,
		},
		&cli.BoolFlag{
			Name:        "include-non-mail",
			Usage:       "include messages without a sender",
			EnvVars:     []string{"MAILSPLIT_INCLUDE_NON_MAIL"},
			Destination: &cfg.IncludeNonMail,
			Value:       def.IncludeNonMail,
		},
		&cli.DurationFlag{
			Name:        "throttle",
			Usage:       "minimum interval between progress updates",
			EnvVars:     []string{"MAILSPLIT_THROTTLE"},
			Destination: &cfg.Throttle,
			Value:       def.Throttle,
		},
		&cli.IntFlag{
			Name:        "batch-size",
			Usage:       "transfer batch size (default: 50, or 100 in turbo mode)",
			EnvVars:     []string{"MAILSPLIT_BATCH_SIZE"},
			Destination: &cfg.BatchSize,
			Value:       def.BatchSize,
		},
		&cli.StringFlag{
			Name:        "summary",
			Usage:       "write a CSV summary of created destinations to this path",
			EnvVars:     []string{"MAILSPLIT_SUMMARY"},
			Destination: &cfg.Summary,
			Value:       def.Summary,
		},
		&cli.StringFlag{
			Name:        "metrics-listen",
			Usage:       "address to serve prometheus metrics on, e.g. :9090",
			EnvVars:     []string{"MAILSPLIT_METRICS_LISTEN"},
			Destination: &cfg.MetricsListen,
			Value:       def.MetricsListen,
		},
	}...)

	return flags
}

func flattenKeys(prefix string, m map[string]interface{}, out map[string]interface{}) {
	for k, v := range m {
		name := strings.ReplaceAll(k, "_", "-")
		if prefix != "" {
			name = prefix + "-" + name
		}

		if sub, ok := v.(map[string]interface{}); ok {
			flattenKeys(name, sub, out)
			continue
		}
		out[name] = v
	}
}

func formatValue(v interface{}) (string, error) {
	switch vv := v.(type) {
	case string:
		return vv, nil
	case bool, int64, float64:
		return fmt.Sprint(vv), nil
	case []interface{}:
		parts := make([]string, 0, len(vv))
		for _, p := range vv {
			s, err := formatValue(p)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// LoadFile applies values from a TOML file to every flag not explicitly
// given. Keys map onto flag names: [source] url = "..." sets --source-url,
// include_folders sets --include-folders.
func LoadFile(ctx *cli.Context, path string) error {
	if path == "" {
		return nil
	}

	raw := map[string]interface{}{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("configuration file %q not found: %w", path, err)
		}
		return fmt.Errorf("error parsing configuration file %q: %w", path, err)
	}

	values := map[string]interface{}{}
	flattenKeys("", raw, values)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.IsSet(name) {
			log.WithField("key", name).Debug("config_file_value_overridden")
			continue
		}

		s, err := formatValue(values[name])
		if err != nil {
			return fmt.Errorf("configuration key %q: %w", name, err)
		}

		if err := ctx.Set(name, s); err != nil {
			log.WithError(err).WithField("key", name).Warn("config_file_unknown_key")
		}
	}

	log.WithField("path", path).Info("config_file_loaded")
	return nil
}

func (cfg *SplitConfig) criteria() (filter.Criteria, error) {
	dr, err := ParseDateRange(cfg.DateRange, time.Local)
	if err != nil {
		return filter.Criteria{}, store.NewConfigurationError("date-range", "%v", err)
	}

	return filter.Criteria{
		IncludeFolders: filter.NewSet(ParseList(cfg.IncludeFolders)...),
		ExcludeFolders: filter.NewSet(ParseList(cfg.ExcludeFolders)...),
		SenderDomains:  filter.NewDomainSet(ParseList(cfg.SenderDomains)...),
		DateRange:      dr,
	}, nil
}

// ResolveStore builds the store configuration from the connection flags.
func (cfg *SplitConfig) ResolveStore() (*imapstore.Config, error) {
	if cfg.Source.URL == "" {
		return nil, store.NewConfigurationError("source-url", "is required")
	}

	srcConn, srcFactory, err := cfg.Source.Resolve()
	if err != nil {
		return nil, store.NewConfigurationError("source", "%v", err)
	}

	storeCfg := &imapstore.Config{
		Source:        srcConn,
		SourceFactory: srcFactory,
		Name:          cfg.Name,
		OutputPath:    cfg.Output,
	}

	if cfg.Dest.URL != "" {
		dstConn, dstFactory, err := cfg.Dest.Resolve()
		if err != nil {
			return nil, store.NewConfigurationError("dest", "%v", err)
		}
		storeCfg.Dest = &dstConn
		storeCfg.DestFactory = dstFactory
	}

	if cfg.Capacity != "" {
		capacity, err := ParseSize(cfg.Capacity)
		if err != nil {
			return nil, store.NewConfigurationError("capacity", "%v", err)
		}
		storeCfg.Capacity = capacity
	}

	return storeCfg, nil
}

// Resolve builds the run configuration. The caller supplies the store and
// sinks.
func (cfg *SplitConfig) Resolve() (split.Config, error) {
	mode, err := grouping.ParseMode(cfg.Mode)
	if err != nil {
		return split.Config{}, err
	}

	var maxBytes int64
	if cfg.Size != "" {
		if maxBytes, err = ParseSize(cfg.Size); err != nil {
			return split.Config{}, store.NewConfigurationError("size", "%v", err)
		}
	}

	criteria, err := cfg.criteria()
	if err != nil {
		return split.Config{}, err
	}

	return split.Config{
		OutputPath:       cfg.Output,
		Mode:             mode,
		MaxBytes:         maxBytes,
		Criteria:         criteria,
		DryRun:           cfg.DryRun,
		Verify:           cfg.Verify,
		Move:             cfg.Move,
		Quiet:            cfg.Quiet,
		Turbo:            cfg.Turbo,
		IncludeNonMail:   cfg.IncludeNonMail,
		BatchSize:        cfg.BatchSize,
		ProgressInterval: cfg.Throttle,
	}, nil
}

func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Source:    DefaultIMAPConfig(),
		LogConfig: DefaultLogConfig(),
	}
}

func (cfg *HealthConfig) Parameters() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, configFileFlag(&cfg.ConfigPath))
	flags = append(flags, cfg.Source.makeIMAPParameters("source", false)...)
	flags = append(flags, cfg.LogConfig.Parameters()...)
	flags = append(flags, &cli.StringFlag{
		Name:        "capacity",
		Usage:       "source account quota (default: inferred)",
		EnvVars:     []string{"MAILSPLIT_CAPACITY"},
		Destination: &cfg.Capacity,
	})
	return flags
}

func (cfg *HealthConfig) ResolveStore() (*imapstore.Config, error) {
	sc := SplitConfig{Source: cfg.Source, Capacity: cfg.Capacity}
	return sc.ResolveStore()
}
