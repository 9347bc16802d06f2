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

package client

import (
	"net"
	"strings"
	"time"

	goImap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	uidplus "github.com/emersion/go-imap-uidplus"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/mailsplit/imap"
)

// Factory dials a fresh connection per call. A zero Timeout disables both
// the dial and the per-command timeout.
type Factory struct {
	Timeout time.Duration
}

// conn adds UID EXPUNGE to the go-imap client.
type conn struct {
	*client.Client
	uidplus *uidplus.Client
}

func (c *conn) UidExpunge(seqset *goImap.SeqSet) error {
	return c.uidplus.UidExpunge(seqset, nil)
}

func (f Factory) dial(cfg *imap.ConnectionConfig) (*client.Client, error) {
	dialer := &net.Dialer{Timeout: f.Timeout}
	if cfg.TLS {
		return client.DialWithDialerTLS(dialer, cfg.HostPort, cfg.TLSConfig)
	}
	return client.DialWithDialer(dialer, cfg.HostPort)
}

func (f Factory) NewClient(cfg *imap.ConnectionConfig) (imap.Client, error) {
	c, err := f.dial(cfg)
	if err != nil {
		return nil, err
	}

	wantCleanup := true
	defer func() {
		if wantCleanup {
			_ = c.Logout()
		}
	}()

	c.Timeout = f.Timeout

	if cfg.Debug {
		c.SetDebug(log.StandardLogger().WriterLevel(log.DebugLevel))
	}

	if err := cfg.Auth.Authenticate(c); err != nil {
		return nil, err
	}

	fields := log.Fields{"host": cfg.HostPort, "tls": cfg.TLS}
	for _, name := range []string{"MOVE", "UIDPLUS", "QUOTA"} {
		ok, err := c.Support(name)
		if err != nil {
			return nil, err
		}
		fields["cap_"+strings.ToLower(name)] = ok
	}
	log.WithFields(fields).Debug("imap_connected")

	wantCleanup = false
	return &conn{Client: c, uidplus: uidplus.NewClient(c)}, nil
}
