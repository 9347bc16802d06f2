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

package store

//go:generate mockgen -destination=mocks/mailstore.go -package=mock_store . MailStore

import (
	"context"
	"strings"
	"time"
)

// Item is a single transferable unit enumerated from a source store.
// Items are snapshots and must not be modified once enumerated.
type Item struct {
	ID           string
	Size         int64
	ReceivedAt   *time.Time
	FolderPath   string
	SenderDomain string
}

// TopLevelFolder returns the first segment of the item's folder path,
// or "" if the item lives in the root.
func (it *Item) TopLevelFolder() string {
	return TopLevelFolder(it.FolderPath)
}

// TopLevelFolder returns the first segment of a canonical folder path.
func TopLevelFolder(path string) string {
	path = strings.Trim(path, Separator)
	if path == "" {
		return ""
	}

	if i := strings.Index(path, Separator); i >= 0 {
		return path[:i]
	}

	return path
}

// Separator is the canonical folder separator. Stores translate to and
// from their native delimiter.
const Separator = "/"

type RiskLevel int

const (
	RiskLow      RiskLevel = 0
	RiskMedium   RiskLevel = 1
	RiskHigh     RiskLevel = 2
	RiskCritical RiskLevel = 3
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		panic("invalid_risk_level")
	}
}

type HealthReport struct {
	SizeBytes          int64
	CapacityBytes      int64
	UtilizationPercent float64
	Risk               RiskLevel
	Format             string
	Warnings           []string
	Recommendations    []string
}

// MailStore is the capability the split engine needs from a mail system.
// Implementations are not required to be safe for concurrent use; the
// orchestrator drives a store from a single goroutine.
type MailStore interface {
	// Name is the display name of the source container, used when naming
	// destinations.
	Name() string

	// Extension is appended to destination names, if non-empty.
	Extension() string

	Attach(ctx context.Context) error

	Detach() error

	HealthCheck(ctx context.Context) (HealthReport, error)

	// Enumerate calls fn for every item in the store. Returning an error
	// from fn stops the enumeration and that error is returned.
	Enumerate(ctx context.Context, includeNonMail bool, fn func(Item) error) error

	// CreateDestination creates (or reuses) the destination container at the
	// given canonical path and returns a reference for TransferItem.
	CreateDestination(ctx context.Context, path string) (string, error)

	TransferItem(ctx context.Context, itemID string, destRef string, folderPath string, move bool) error

	// Reclaim attempts to free space in a destination after a capacity error.
	Reclaim(ctx context.Context, destRef string) error

	// CountItems returns the number of items currently held by a destination.
	CountItems(ctx context.Context, destRef string) (int, error)
}

// DestinationName builds the deterministic name of a bucket's destination.
func DestinationName(sourceName string, bucketName string, ext string) string {
	name := sourceName + "_" + bucketName
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	return name
}

// JoinPath joins canonical path segments, skipping empty ones.
func JoinPath(parts ...string) string {
	var out []string
	for _, p := range parts {
		p = strings.Trim(p, Separator)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, Separator)
}
