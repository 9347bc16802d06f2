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
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vs49688/mailsplit/filter"
)

const dateLayout = "2006-01-02"

var sizeUnits = []struct {
	suffix string
	iec    string
}{
	{"tb", "TiB"},
	{"gb", "GiB"},
	{"mb", "MiB"},
	{"kb", "KiB"},
	{"t", "TiB"},
	{"g", "GiB"},
	{"m", "MiB"},
	{"k", "KiB"},
}

// ParseSize parses a size such as "500MB", "2GB" or "0.5TB". Units are
// binary. A bare number is in megabytes.
func ParseSize(s string) (int64, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return 0, fmt.Errorf("empty size")
	}

	normalized := ""
	for _, u := range sizeUnits {
		if strings.HasSuffix(t, u.suffix) {
			normalized = strings.TrimSpace(strings.TrimSuffix(t, u.suffix)) + " " + u.iec
			break
		}
	}

	if normalized == "" {
		normalized = t + " MiB"
	}

	n, err := humanize.ParseBytes(normalized)
	if err != nil {
		return 0, fmt.Errorf("cannot parse size %q (expected e.g. 500MB, 5GB, 0.5TB): %w", s, err)
	}

	if n == 0 {
		return 0, fmt.Errorf("size must be positive, got %q", s)
	}

	return int64(n), nil
}

// ParseDateRange parses "YYYY-MM-DD[:YYYY-MM-DD]". A single date is an
// open-ended range starting on that day. The end date is inclusive of the
// whole day. Returns nil for an empty string.
func ParseDateRange(s string, loc *time.Location) (*filter.DateRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if loc == nil {
		loc = time.Local
	}

	startStr, endStr, _ := strings.Cut(s, ":")

	r := &filter.DateRange{}
	if startStr != "" {
		start, err := time.ParseInLocation(dateLayout, startStr, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", startStr, err)
		}
		r.Start = &start
	}

	if endStr != "" {
		end, err := time.ParseInLocation(dateLayout, endStr, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", endStr, err)
		}
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		r.End = &end
	}

	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return nil, fmt.Errorf("date range %q ends before it starts", s)
	}

	if !r.IsSet() {
		return nil, nil
	}
	return r, nil
}

// ParseList splits a comma-separated list, dropping empty entries.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
