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
	"errors"
	"math/rand"
	"net/url"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/imap"
	"github.com/vs49688/mailsplit/imap/client"
)

var errConnectionClosed = errors.New("connection closed")

func (c *PersistentIMAPClient) isShutdown() bool {
	return atomic.LoadInt32(&c.shutdown) != 0
}

// closedErr may only be called once loggedOut has been closed.
func (c *PersistentIMAPClient) closedErr() error {
	if c.lastErr != nil {
		return c.lastErr
	}
	return errConnectionClosed
}

func (c *PersistentIMAPClient) submit(req request) bool {
	select {
	case c.ch <- req:
		return true
	case <-c.loggedOut:
		return false
	}
}

func (c *PersistentIMAPClient) do(name string, fn func(cli imap.Client) error, cleanup func()) error {
	c.log().WithField("shutdown", c.isShutdown()).Tracef("pimap_%v_invoked", name)

	req := doRequest{r: make(chan error, 1), name: name, fn: fn, cleanup: cleanup}
	if !c.submit(req) {
		if cleanup != nil {
			cleanup()
		}
		return c.closedErr()
	}
	return <-req.r
}

func closer[T any](ch chan T) func() {
	if ch == nil {
		return nil
	}
	return func() { close(ch) }
}

func (c *PersistentIMAPClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	c.log().WithField("shutdown", c.isShutdown()).Trace("pimap_select_invoked")

	req := selectRequest{
		r:        make(chan selectResponse, 1),
		name:     name,
		readOnly: readOnly,
	}
	if !c.submit(req) {
		return nil, c.closedErr()
	}
	sr := <-req.r
	return sr.status, sr.err
}

func (c *PersistentIMAPClient) List(ref string, name string, ch chan *imap.MailboxInfo) error {
	return c.do("list", func(cli imap.Client) error { return cli.List(ref, name, ch) }, closer(ch))
}

func (c *PersistentIMAPClient) Create(name string) error {
	return c.do("create", func(cli imap.Client) error { return cli.Create(name) }, nil)
}

func (c *PersistentIMAPClient) Status(name string, items []imap.StatusItem) (*imap.MailboxStatus, error) {
	var status *imap.MailboxStatus
	err := c.do("status", func(cli imap.Client) error {
		var err error
		status, err = cli.Status(name, items)
		return err
	}, nil)
	return status, err
}

func (c *PersistentIMAPClient) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	return c.do("uidfetch", func(cli imap.Client) error { return cli.UidFetch(seqset, items, ch) }, closer(ch))
}

func (c *PersistentIMAPClient) UidCopy(seqset *imap.SeqSet, dest string) error {
	return c.do("uidcopy", func(cli imap.Client) error { return cli.UidCopy(seqset, dest) }, nil)
}

func (c *PersistentIMAPClient) UidMove(seqset *imap.SeqSet, dest string) error {
	return c.do("uidmove", func(cli imap.Client) error { return cli.UidMove(seqset, dest) }, nil)
}

func (c *PersistentIMAPClient) UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error {
	return c.do("uidstore", func(cli imap.Client) error { return cli.UidStore(seqset, item, value, ch) }, closer(ch))
}

func (c *PersistentIMAPClient) Expunge(ch chan uint32) error {
	return c.do("expunge", func(cli imap.Client) error { return cli.Expunge(ch) }, closer(ch))
}

func (c *PersistentIMAPClient) UidExpunge(seqset *imap.SeqSet) error {
	return c.do("uidexpunge", func(cli imap.Client) error { return cli.UidExpunge(seqset) }, nil)
}

func (c *PersistentIMAPClient) Support(cap string) (bool, error) {
	var ok bool
	err := c.do("support", func(cli imap.Client) error {
		var err error
		ok, err = cli.Support(cap)
		return err
	}, nil)
	return ok, err
}

func (c *PersistentIMAPClient) Append(mbox string, flags []string, date time.Time, msg imap.Literal) error {
	return c.do("append", func(cli imap.Client) error { return cli.Append(mbox, flags, date, msg) }, nil)
}

// Mailbox returns the currently-selected mailbox, or nil if there is none
// or the client has shut down.
func (c *PersistentIMAPClient) Mailbox() *imap.MailboxStatus {
	var status *imap.MailboxStatus
	_ = c.do("mailbox", func(cli imap.Client) error {
		status = cli.Mailbox()
		return nil
	}, nil)
	return status
}

func (c *PersistentIMAPClient) Logout() error {
	c.log().WithField("shutdown", c.isShutdown()).Trace("pimap_logout_invoked")

	req := logoutRequest{r: make(chan error, 1)}
	select {
	case c.logoutChannel <- req:
		return <-req.r
	case <-c.loggedOut:
		return nil
	}
}

func (c *PersistentIMAPClient) LoggedOut() <-chan struct{} {
	return c.loggedOut
}

// Err returns the error that caused the client to give up reconnecting,
// or nil if it was logged out normally or is still running.
func (c *PersistentIMAPClient) Err() error {
	select {
	case <-c.loggedOut:
		return c.lastErr
	default:
		return nil
	}
}

func (c *PersistentIMAPClient) log() *log.Entry {
	return log.WithField("url", c.logURL)
}

func (c *PersistentIMAPClient) connect() (imap.Client, error) {
	cli, err := c.factory.NewClient(&c.cfg.ConnectionConfig)
	if err != nil {
		return nil, err
	}

	sel := c.selected
	if sel == nil && c.cfg.Mailbox != "" {
		sel = &selection{name: c.cfg.Mailbox}
	}

	if sel != nil {
		if _, err = cli.Select(sel.name, sel.readOnly); err != nil {
			_ = cli.Logout()
			return nil, err
		}
		c.selected = sel
	}

	return cli, nil
}

func nextBackoff(delay time.Duration, max time.Duration) time.Duration {
	if delay == 0 {
		delay = time.Second
	} else {
		delay = 2 * (delay - (delay % (1000 * time.Millisecond)))
	}

	delay += time.Duration(rand.Intn(1000)) * time.Millisecond
	if delay > max {
		delay = max
	}
	return delay
}

func (c *PersistentIMAPClient) handle(_req request) {
	switch req := _req.(type) {
	case selectRequest:
		c.log().WithField("mailbox", req.name).Trace("pimap_select_request")
		s, err := c.c.Select(req.name, req.readOnly)
		if err == nil {
			c.selected = &selection{name: req.name, readOnly: req.readOnly}
		}
		req.r <- selectResponse{status: s, err: err}
	case doRequest:
		c.log().Tracef("pimap_%v_request", req.name)
		req.r <- req.fn(c.c)
	}
}

func (c *PersistentIMAPClient) run() {
	var nextDelay time.Duration = 0
	failures := 0
	state := ClientStateDisconnected
	for {
		c.log().WithField("state", state).Trace("pimap_loop_enter")
		if state == ClientStateDisconnected {
			select {
			case req := <-c.logoutChannel:
				c.log().Trace("pimap_logout_request")
				req.r <- nil
				goto done
			case <-time.After(nextDelay):
				break
			}

			cli, err := c.connect()
			if err != nil {
				failures++
				if c.cfg.MaxRetries > 0 && failures >= c.cfg.MaxRetries {
					c.log().WithError(err).WithField("attempts", failures).Error("pimap_giving_up")
					c.lastErr = err
					goto done
				}

				nextDelay = nextBackoff(nextDelay, c.cfg.MaxDelay)
				c.log().WithError(err).WithFields(log.Fields{
					"new_delay": nextDelay,
				}).Error("pimap_connection_failed")
				continue
			}

			c.c = cli
			state = ClientStateConnected
			nextDelay = time.Second
			failures = 0
		}

		if state == ClientStateConnected {
			select {
			case <-c.c.LoggedOut():
				c.log().Trace("pimap_disconnected")
				c.c = nil
				state = ClientStateDisconnected
			case req := <-c.logoutChannel:
				c.log().Trace("pimap_logout_request")
				req.r <- c.c.Logout()
				goto done
			case req := <-c.ch:
				c.handle(req)
			}
		}
	}
done:
	c.c = nil
	atomic.StoreInt32(&c.shutdown, 1)
	close(c.loggedOut)
	c.drainRequests()
	c.log().Trace("pimap_proc_exit")
}

// drainRequests fails any request that was accepted between the last loop
// iteration and loggedOut being closed.
func (c *PersistentIMAPClient) drainRequests() {
	count := 0
	for {
		select {
		case req := <-c.ch:
			count++
			req.fail(c.closedErr())
		default:
			c.log().WithField("count", count).Trace("pimap_drained_requests")
			return
		}
	}
}

func NewClient(cfg *Config) (*PersistentIMAPClient, error) {
	return newClient(cfg, client.Factory{Timeout: cfg.Timeout}), nil
}

func newClient(cfg *Config, factory imap.Factory) *PersistentIMAPClient {
	ourCfg := *cfg
	if ourCfg.MaxDelay == 0 {
		ourCfg.MaxDelay = 64 * time.Second
	} else if ourCfg.MaxDelay < time.Second {
		ourCfg.MaxDelay = time.Second
	}

	u := url.URL{
		Host: ourCfg.HostPort,
		Path: ourCfg.Mailbox,
	}

	if ourCfg.TLS {
		u.Scheme = "imaps"
	} else {
		u.Scheme = "imap"
	}

	c := &PersistentIMAPClient{
		cfg:           ourCfg,
		factory:       factory,
		ch:            make(chan request),
		logoutChannel: make(chan logoutRequest),
		shutdown:      0,
		loggedOut:     make(chan struct{}),
		logURL:        u.String(),
	}
	go c.run()
	return c
}
