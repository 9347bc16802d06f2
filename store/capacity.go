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

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

const (
	// Capacity ceilings for the two container formats a source can have.
	CapacitySmall int64 = 2 * 1024 * 1024 * 1024
	CapacityLarge int64 = 50 * 1024 * 1024 * 1024

	lowFreeSpace int64 = 100 * 1024 * 1024
)

// ClassifyRisk maps a utilization percentage to a risk level.
func ClassifyRisk(utilization float64) RiskLevel {
	switch {
	case utilization >= 95:
		return RiskCritical
	case utilization >= 85:
		return RiskHigh
	case utilization >= 70:
		return RiskMedium
	default:
		return RiskLow
	}
}

// AnalyzeCapacity builds a health report from a container's size. If
// capacity is zero, the ceiling is inferred from the size: anything under
// the small ceiling is treated as a small-format container.
func AnalyzeCapacity(size int64, capacity int64) HealthReport {
	r := HealthReport{SizeBytes: size, CapacityBytes: capacity}

	if r.CapacityBytes <= 0 {
		if size < CapacitySmall {
			r.CapacityBytes = CapacitySmall
			r.Format = "small"
		} else {
			r.CapacityBytes = CapacityLarge
			r.Format = "large"
		}
	} else {
		r.Format = "quota"
	}

	r.UtilizationPercent = float64(size) / float64(r.CapacityBytes) * 100
	r.Risk = ClassifyRisk(r.UtilizationPercent)

	switch r.Risk {
	case RiskCritical:
		r.Warnings = append(r.Warnings, fmt.Sprintf("CRITICAL: store is %.1f%% full - high risk of failures", r.UtilizationPercent))
		r.Recommendations = append(r.Recommendations, "Immediate splitting required")
	case RiskHigh:
		r.Warnings = append(r.Warnings, fmt.Sprintf("HIGH RISK: store is %.1f%% full - may encounter issues", r.UtilizationPercent))
		r.Recommendations = append(r.Recommendations, "Plan splitting soon")
	case RiskMedium:
		r.Warnings = append(r.Warnings, fmt.Sprintf("MEDIUM RISK: store is %.1f%% full - monitor closely", r.UtilizationPercent))
		r.Recommendations = append(r.Recommendations, "Monitor store growth")
	}

	free := r.CapacityBytes - size
	if free < 0 {
		free = 0
	}

	if free < lowFreeSpace {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Critically low free space (%v)", humanize.IBytes(uint64(free))))
		r.Recommendations = append(r.Recommendations, "Clean up deleted items")
	}

	if r.Format == "small" && size > CapacitySmall*9/10 {
		r.Warnings = append(r.Warnings, "Store near the small-format limit")
		r.Recommendations = append(r.Recommendations, "Move to a large-format container")
	}

	return r
}
