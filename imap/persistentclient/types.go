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

package persistentclient

import (
	"time"

	"github.com/vs49688/mailsplit/imap"
)

type Config struct {
	imap.ConnectionConfig
	MaxDelay time.Duration
	// MaxRetries is the number of consecutive failed connection attempts
	// after which the client gives up. Zero retries forever.
	MaxRetries int
	// Timeout bounds each dial and command on the underlying connection.
	Timeout time.Duration
}

type request interface {
	fail(err error)
}

type selectResponse struct {
	status *imap.MailboxStatus
	err    error
}

type selectRequest struct {
	r chan selectResponse

	name     string
	readOnly bool
}

func (req selectRequest) fail(err error) {
	req.r <- selectResponse{err: err}
}

// doRequest runs fn against the live connection.
type doRequest struct {
	r chan error

	name string
	fn   func(c imap.Client) error
	// cleanup runs instead of fn if the request is never executed.
	cleanup func()
}

func (req doRequest) fail(err error) {
	if req.cleanup != nil {
		req.cleanup()
	}
	req.r <- err
}

type logoutRequest struct {
	r chan error
}

type selection struct {
	name     string
	readOnly bool
}

type clientState int32

const (
	ClientStateDisconnected clientState = 0
	ClientStateConnected    clientState = 1
)

func (s clientState) String() string {
	switch s {
	case ClientStateDisconnected:
		return "disconnected"
	case ClientStateConnected:
		return "connected"
	default:
		panic("invalid_state")
	}
}

type PersistentIMAPClient struct {
	c             imap.Client
	cfg           Config
	factory       imap.Factory
	ch            chan request
	logoutChannel chan logoutRequest
	shutdown      int32
	loggedOut     chan struct{}
	logURL        string

	// selected is re-selected after a reconnect. Owned by run().
	selected *selection
	// lastErr is the connection error that made the client give up.
	// Written before loggedOut is closed.
	lastErr error
}

type Factory struct {
	MaxDelay   time.Duration
	MaxRetries int
	Timeout    time.Duration
}
