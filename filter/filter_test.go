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

package filter

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/vs49688/mailsplit/store"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func ids(items []store.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestNewSet(t *testing.T) {
	assert.Nil(t, NewSet())
	assert.Nil(t, NewSet(" ", ""))
	assert.Equal(t, Set{"inbox": {}, "sent items": {}}, NewSet(" Inbox", "Sent Items "))
	assert.Equal(t, Set{"example.com": {}}, NewDomainSet("@Example.COM"))
}

func TestFolderInclude(t *testing.T) {
	items := []store.Item{
		{ID: "1", FolderPath: "Inbox/Sub"},
		{ID: "2", FolderPath: "Sent"},
		{ID: "3", FolderPath: ""},
		{ID: "4", FolderPath: "INBOX"},
	}

	out := Apply(items, Criteria{IncludeFolders: NewSet("inbox")})
	assert.Equal(t, []string{"1", "4"}, ids(out))
}

func TestFolderExclude(t *testing.T) {
	items := []store.Item{
		{ID: "1", FolderPath: "Inbox/Sub"},
		{ID: "2", FolderPath: "Junk"},
		{ID: "3", FolderPath: ""},
	}

	out := Apply(items, Criteria{ExcludeFolders: NewSet("junk")})
	assert.Equal(t, []string{"1", "3"}, ids(out))
}

func TestExcludeWins(t *testing.T) {
	items := []store.Item{
		{ID: "1", FolderPath: "Inbox"},
		{ID: "2", FolderPath: "Archive"},
	}

	c := Criteria{
		IncludeFolders: NewSet("inbox", "archive"),
		ExcludeFolders: NewSet("inbox"),
	}

	assert.Equal(t, []string{"inbox"}, c.Conflicts())
	assert.Equal(t, []string{"2"}, ids(Apply(items, c)))
}

func TestSenderDomains(t *testing.T) {
	items := []store.Item{
		{ID: "1", SenderDomain: "example.com"},
		{ID: "2", SenderDomain: ""},
		{ID: "3", SenderDomain: "other.org"},
	}

	out := Apply(items, Criteria{SenderDomains: NewDomainSet("@EXAMPLE.com")})
	assert.Equal(t, []string{"1"}, ids(out))
}

func TestDateRange(t *testing.T) {
	items := []store.Item{
		{ID: "1", ReceivedAt: date(2020, 12, 31)},
		{ID: "2", ReceivedAt: date(2021, 1, 1)},
		{ID: "3", ReceivedAt: nil},
		{ID: "4", ReceivedAt: date(2021, 6, 30)},
		{ID: "5", ReceivedAt: date(2021, 7, 1)},
	}

	t.Run("closed", func(t *testing.T) {
		r := &DateRange{Start: date(2021, 1, 1), End: date(2021, 6, 30)}
		assert.Equal(t, []string{"2", "4"}, ids(Apply(items, Criteria{DateRange: r})))
	})

	t.Run("open_end", func(t *testing.T) {
		r := &DateRange{Start: date(2021, 1, 1)}
		assert.Equal(t, []string{"2", "4", "5"}, ids(Apply(items, Criteria{DateRange: r})))
	})

	t.Run("open_start", func(t *testing.T) {
		r := &DateRange{End: date(2020, 12, 31)}
		assert.Equal(t, []string{"1"}, ids(Apply(items, Criteria{DateRange: r})))
	})

	t.Run("unset", func(t *testing.T) {
		assert.Len(t, Apply(items, Criteria{DateRange: &DateRange{}}), len(items))
	})
}

func TestEmptyCriteria(t *testing.T) {
	items := []store.Item{{ID: "1"}, {ID: "2", FolderPath: "x"}}
	c := Criteria{}
	assert.True(t, c.IsEmpty())
	assert.Equal(t, items, Apply(items, c))
}

func TestApplyDoesNotAlias(t *testing.T) {
	items := make([]store.Item, 2, 4)
	items[0] = store.Item{ID: "1"}
	items[1] = store.Item{ID: "2"}

	out := Apply(items, Criteria{})
	out[0].ID = "changed"
	out = append(out, store.Item{ID: "3"})

	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "", items[:3][2].ID)
	assert.Len(t, out, 3)
}

func genItem() gopter.Gen {
	folders := []interface{}{"", "Inbox", "inbox/Sub", "Sent", "Archive/2020", "JUNK"}
	domains := []interface{}{"", "example.com", "other.org"}

	return gopter.CombineGens(
		gen.IntRange(0, 1_000_000),
		gen.OneConstOf(folders...),
		gen.OneConstOf(domains...),
		gen.IntRange(-1, 3*365),
	).Map(func(v []interface{}) store.Item {
		it := store.Item{
			Size:         int64(v[0].(int)),
			FolderPath:   v[1].(string),
			SenderDomain: v[2].(string),
		}

		if days := v[3].(int); days >= 0 {
			d := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
			it.ReceivedAt = &d
		}
		return it
	})
}

func genItems() gopter.Gen {
	return gen.SliceOf(genItem()).Map(func(items []store.Item) []store.Item {
		for i := range items {
			items[i].ID = fmt.Sprintf("item-%d", i)
		}
		return items
	})
}

func TestFilterProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	criteria := Criteria{
		IncludeFolders: NewSet("inbox", "archive", "junk"),
		ExcludeFolders: NewSet("junk"),
		SenderDomains:  NewDomainSet("example.com", "other.org"),
		DateRange:      &DateRange{Start: date(2020, 6, 1), End: date(2021, 6, 1)},
	}

	properties.Property("filter is idempotent", prop.ForAll(
		func(items []store.Item) bool {
			once := Apply(items, criteria)
			twice := Apply(once, criteria)
			return reflect.DeepEqual(once, twice)
		},
		genItems(),
	))

	properties.Property("filter preserves order and never invents items", prop.ForAll(
		func(items []store.Item) bool {
			out := Apply(items, criteria)
			j := 0
			for _, it := range out {
				for j < len(items) && items[j].ID != it.ID {
					j++
				}
				if j == len(items) {
					return false
				}
				j++
			}
			return true
		},
		genItems(),
	))

	properties.TestingRun(t)
}
