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

package oauthlogin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
)

func TestWriteToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")

	assert.NoError(t, writeToken(path, "refresh"))

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "refresh\n", string(data))

	fi, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
}

func TestRequiresClientID(t *testing.T) {
	app := &cli.App{Name: "mailsplit"}
	RegisterCommand(app)

	err := app.Run([]string{"mailsplit", "oauthlogin", "--oauth2-provider", "google"})
	assert.Error(t, err)
}
