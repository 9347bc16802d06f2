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

// Package grouping partitions an ordered item list into named buckets.
package grouping

import (
	"fmt"
	"strings"

	"github.com/vs49688/mailsplit/store"
)

const (
	UnknownDateBucket = "Unknown_Date"
	RootFolderBucket  = "Root"
)

type Mode string

const (
	ModeSize   Mode = "size"
	ModeYear   Mode = "year"
	ModeMonth  Mode = "month"
	ModeFolder Mode = "folder"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeSize, ModeYear, ModeMonth, ModeFolder:
		return true
	default:
		return false
	}
}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", store.NewConfigurationError("mode", "unknown mode %q", s)
	}
	return m, nil
}

type Bucket struct {
	Ordinal int
	Name    string
	Items   []store.Item
}

func (b *Bucket) Bytes() int64 {
	var n int64
	for i := range b.Items {
		n += b.Items[i].Size
	}
	return n
}

// Policy maps items to buckets. Implementations are pure and deterministic
// for a given input order.
type Policy interface {
	Mode() Mode
	Group(items []store.Item) ([]Bucket, error)
}

// ForMode builds the policy for a mode. maxBytes is only used by ModeSize.
func ForMode(mode Mode, maxBytes int64) (Policy, error) {
	switch mode {
	case ModeSize:
		if maxBytes <= 0 {
			return nil, store.NewConfigurationError("size", "must be positive, got %v", maxBytes)
		}
		return &Size{MaxBytes: maxBytes}, nil
	case ModeYear:
		return &Year{}, nil
	case ModeMonth:
		return &Month{}, nil
	case ModeFolder:
		return &Folder{}, nil
	default:
		return nil, store.NewConfigurationError("mode", "unknown mode %q", mode)
	}
}

// Size is greedy sequential bin-packing. Items larger than MaxBytes are
// always emitted as singleton buckets.
type Size struct {
	MaxBytes int64
}

func (p *Size) Mode() Mode {
	return ModeSize
}

func (p *Size) Group(items []store.Item) ([]Bucket, error) {
	if p.MaxBytes <= 0 {
		return nil, store.NewConfigurationError("size", "must be positive, got %v", p.MaxBytes)
	}

	var buckets []Bucket
	var current []store.Item
	var currentSize int64

	flush := func() {
		if len(current) == 0 {
			return
		}

		n := len(buckets) + 1
		buckets = append(buckets, Bucket{Ordinal: n, Name: partName(n), Items: current})
		current, currentSize = nil, 0
	}

	for _, it := range items {
		if it.Size > p.MaxBytes {
			flush()
			current, currentSize = []store.Item{it}, it.Size
			flush()
			continue
		}

		if len(current) > 0 && currentSize+it.Size > p.MaxBytes {
			flush()
		}

		current = append(current, it)
		currentSize += it.Size
	}

	flush()
	return buckets, nil
}

func partName(n int) string {
	return fmt.Sprintf("part%03d", n)
}

// keyed groups items by a derived key, emitting buckets in order of first
// occurrence. If last is non-empty, the bucket with that key is moved to
// the end.
func keyed(items []store.Item, key func(*store.Item) string, last string) []Bucket {
	var buckets []Bucket
	index := map[string]int{}

	for i := range items {
		k := key(&items[i])

		idx, ok := index[k]
		if !ok {
			idx = len(buckets)
			index[k] = idx
			buckets = append(buckets, Bucket{Name: k})
		}

		buckets[idx].Items = append(buckets[idx].Items, items[i])
	}

	if idx, ok := index[last]; ok && last != "" && idx != len(buckets)-1 {
		b := buckets[idx]
		buckets = append(buckets[:idx], buckets[idx+1:]...)
		buckets = append(buckets, b)
	}

	for i := range buckets {
		buckets[i].Ordinal = i + 1
	}

	return buckets
}

// Year partitions by the four-digit year of ReceivedAt. Undated items share
// the Unknown_Date bucket, which is always last.
type Year struct{}

func (p *Year) Mode() Mode {
	return ModeYear
}

func (p *Year) Group(items []store.Item) ([]Bucket, error) {
	return keyed(items, func(it *store.Item) string {
		if it.ReceivedAt == nil {
			return UnknownDateBucket
		}
		return fmt.Sprintf("%04d", it.ReceivedAt.Year())
	}, UnknownDateBucket), nil
}

// Month partitions by YYYY-MM. Undated items are keyed as the zero time,
// "0001-01".
type Month struct{}

func (p *Month) Mode() Mode {
	return ModeMonth
}

func (p *Month) Group(items []store.Item) ([]Bucket, error) {
	return keyed(items, func(it *store.Item) string {
		if it.ReceivedAt == nil {
			return UndatedMonthBucket
		}
		return it.ReceivedAt.Format("2006-01")
	}, ""), nil
}

// UndatedMonthBucket holds the items of a month split that carry no date.
const UndatedMonthBucket = "0001-01"

// Folder partitions by top-level folder. Items in the root go to "Root".
type Folder struct{}

func (p *Folder) Mode() Mode {
	return ModeFolder
}

func (p *Folder) Group(items []store.Item) ([]Bucket, error) {
	return keyed(items, func(it *store.Item) string {
		if top := it.TopLevelFolder(); top != "" {
			return top
		}
		return RootFolderBucket
	}, ""), nil
}
