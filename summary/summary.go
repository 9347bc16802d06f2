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

// Package summary exports the outcome of a split run as CSV.
package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/split"
	"github.com/vs49688/mailsplit/transfer"
)

var (
	destinationHeader = []string{"name", "item_count", "byte_size", "created_at"}
	failureHeader     = []string{"id", "error", "bucket"}
)

// FailuresPath derives the failure export path from the summary path.
func FailuresPath(path string) string {
	ext := ""
	if i := strings.LastIndex(path, "."); i > strings.LastIndexAny(path, `/\`) {
		ext = path[i:]
		path = path[:i]
	}

	if ext == "" {
		ext = ".csv"
	}
	return path + ".failures" + ext
}

// WriteDestinations writes one row per destination that was created. Dry
// runs write the planned destinations with an empty creation time.
func WriteDestinations(w io.Writer, buckets []split.BucketReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(destinationHeader); err != nil {
		return err
	}

	for _, b := range buckets {
		createdAt := ""
		switch {
		case b.DryRun:
		case b.CreatedAt.IsZero():
			continue
		default:
			createdAt = b.CreatedAt.UTC().Format(time.RFC3339)
		}

		row := []string{
			b.Destination,
			strconv.Itoa(b.Items),
			strconv.FormatInt(b.Bytes, 10),
			createdAt,
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteFailures(w io.Writer, failures []transfer.FailedItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(failureHeader); err != nil {
		return err
	}

	for _, f := range failures {
		if err := cw.Write([]string{f.ID, f.Error, f.Bucket}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %v: %w", path, err)
	}

	return f.Close()
}

// Export writes the destination summary to path and, if any item failed,
// the failures next to it.
func Export(path string, res *split.Result) error {
	if err := writeFile(path, func(w io.Writer) error { return WriteDestinations(w, res.Buckets) }); err != nil {
		return err
	}

	log.WithFields(log.Fields{"path": path, "buckets": len(res.Buckets)}).Info("summary_exported")

	if len(res.FailedItems) == 0 {
		return nil
	}

	failPath := FailuresPath(path)
	if err := writeFile(failPath, func(w io.Writer) error { return WriteFailures(w, res.FailedItems) }); err != nil {
		return err
	}

	log.WithFields(log.Fields{"path": failPath, "failures": len(res.FailedItems)}).Info("summary_failures_exported")
	return nil
}
