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

// Package filter selects the items a split run operates on.
package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/vs49688/mailsplit/store"
)

// Set is a set of lower-cased names.
type Set map[string]struct{}

// NewSet builds a Set from user input. Entries are trimmed and lower-cased,
// empty entries are dropped. Returns nil if nothing remains.
func NewSet(names ...string) Set {
	s := Set{}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			s[n] = struct{}{}
		}
	}

	if len(s) == 0 {
		return nil
	}
	return s
}

// NewDomainSet is NewSet with any leading '@' removed.
func NewDomainSet(domains ...string) Set {
	trimmed := make([]string, 0, len(domains))
	for _, d := range domains {
		trimmed = append(trimmed, strings.TrimLeft(strings.TrimSpace(d), "@"))
	}
	return NewSet(trimmed...)
}

func (s Set) Contains(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DateRange is inclusive on both ends. A nil bound is open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r *DateRange) IsSet() bool {
	return r != nil && (r.Start != nil || r.End != nil)
}

func (r *DateRange) Contains(t *time.Time) bool {
	if t == nil {
		return false
	}

	if r.Start != nil && t.Before(*r.Start) {
		return false
	}

	if r.End != nil && t.After(*r.End) {
		return false
	}

	return true
}

type Criteria struct {
	IncludeFolders Set
	ExcludeFolders Set
	SenderDomains  Set
	DateRange      *DateRange
}

// IsEmpty reports whether applying c would be a no-op.
func (c *Criteria) IsEmpty() bool {
	return len(c.IncludeFolders) == 0 &&
		len(c.ExcludeFolders) == 0 &&
		len(c.SenderDomains) == 0 &&
		!c.DateRange.IsSet()
}

// Conflicts returns the folder names present in both the include and
// exclude sets. Such items are always excluded.
func (c *Criteria) Conflicts() []string {
	var out []string
	for name := range c.IncludeFolders {
		if _, ok := c.ExcludeFolders[name]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func matchesFolder(path string, folders Set) bool {
	top := store.TopLevelFolder(path)
	if top == "" {
		return false
	}
	return folders.Contains(top)
}

func keep(items []store.Item, pred func(*store.Item) bool) []store.Item {
	out := make([]store.Item, 0, len(items))
	for i := range items {
		if pred(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// Apply returns the items matching every supplied criterion, in their
// original order. The result never shares storage with items.
func Apply(items []store.Item, c Criteria) []store.Item {
	if c.IsEmpty() {
		out := make([]store.Item, len(items))
		copy(out, items)
		return out
	}

	filtered := items

	if len(c.IncludeFolders) > 0 {
		filtered = keep(filtered, func(it *store.Item) bool { return matchesFolder(it.FolderPath, c.IncludeFolders) })
	}

	if len(c.ExcludeFolders) > 0 {
		filtered = keep(filtered, func(it *store.Item) bool { return !matchesFolder(it.FolderPath, c.ExcludeFolders) })
	}

	if len(c.SenderDomains) > 0 {
		filtered = keep(filtered, func(it *store.Item) bool {
			return it.SenderDomain != "" && c.SenderDomains.Contains(it.SenderDomain)
		})
	}

	if c.DateRange.IsSet() {
		filtered = keep(filtered, func(it *store.Item) bool { return c.DateRange.Contains(it.ReceivedAt) })
	}

	return filtered
}
