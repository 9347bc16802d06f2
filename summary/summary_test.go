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

package summary

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vs49688/mailsplit/split"
	"github.com/vs49688/mailsplit/transfer"
)

func TestFailuresPath(t *testing.T) {
	assert.Equal(t, "out/summary.failures.csv", FailuresPath("out/summary.csv"))
	assert.Equal(t, "out/summary.failures.csv", FailuresPath("out/summary"))
	assert.Equal(t, "out.d/summary.failures.csv", FailuresPath("out.d/summary"))
}

func TestWriteDestinations(t *testing.T) {
	created := time.Date(2022, 5, 1, 10, 30, 0, 0, time.UTC)

	buckets := []split.BucketReport{
		{Name: "2021", Destination: "Split/archive_2021", Items: 3, Bytes: 1500, CreatedAt: created},
		{Name: "2022", Destination: "Split/archive_2022", Items: 1, Bytes: 10, Error: "create failed"},
	}

	buf := new(bytes.Buffer)
	assert.NoError(t, WriteDestinations(buf, buckets))
	assert.Equal(t,
		"name,item_count,byte_size,created_at\n"+
			"Split/archive_2021,3,1500,2022-05-01T10:30:00Z\n",
		buf.String())
}

func TestWriteDestinationsDryRun(t *testing.T) {
	buf := new(bytes.Buffer)
	assert.NoError(t, WriteDestinations(buf, []split.BucketReport{
		{Name: "Inbox", Destination: "archive_Inbox", Items: 2, Bytes: 20, DryRun: true},
	}))
	assert.Equal(t, "name,item_count,byte_size,created_at\narchive_Inbox,2,20,\n", buf.String())
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.csv")

	res := &split.Result{
		Buckets: []split.BucketReport{
			{Name: "Inbox", Destination: "archive_Inbox", Items: 2, Bytes: 20, CreatedAt: time.Now()},
		},
		FailedItems: []transfer.FailedItem{
			{ID: "INBOX/42", Error: "permission denied, \"quoted\"", Bucket: "Inbox"},
		},
	}

	assert.NoError(t, Export(path, res))

	data, err := os.ReadFile(filepath.Join(dir, "summary.failures.csv"))
	assert.NoError(t, err)
	assert.Equal(t, "id,error,bucket\nINBOX/42,\"permission denied, \"\"quoted\"\"\",Inbox\n", string(data))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestExportNoFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.csv")

	assert.NoError(t, Export(path, &split.Result{}))

	_, err := os.Stat(FailuresPath(path))
	assert.True(t, os.IsNotExist(err))
}
