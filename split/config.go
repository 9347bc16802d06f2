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
	"github.com/vs49688/mailsplit/grouping"
	"github.com/vs49688/mailsplit/store"
)

// Validate rejects configurations a run cannot start with.
func Validate(cfg *Config) error {
	if cfg.Store == nil {
		return store.NewConfigurationError("store", "no store configured")
	}

	if cfg.Store.Name() == "" {
		return store.NewConfigurationError("store", "source has no name")
	}

	if !cfg.Mode.Valid() {
		return store.NewConfigurationError("mode", "unknown mode %q", cfg.Mode)
	}

	if cfg.Mode == grouping.ModeSize && cfg.MaxBytes <= 0 {
		return store.NewConfigurationError("size", "must be positive in size mode, got %v", cfg.MaxBytes)
	}

	if cfg.Mode != grouping.ModeSize && cfg.MaxBytes != 0 {
		return store.NewConfigurationError("size", "only valid in size mode, not %v", cfg.Mode)
	}

	if cfg.BatchSize < 0 {
		return store.NewConfigurationError("batch_size", "must not be negative, got %v", cfg.BatchSize)
	}

	if cfg.ProgressInterval < 0 {
		return store.NewConfigurationError("progress_interval", "must not be negative, got %v", cfg.ProgressInterval)
	}

	if cfg.DryRun && cfg.Verify {
		return store.NewConfigurationError("verify", "cannot verify a dry run")
	}

	return nil
}
