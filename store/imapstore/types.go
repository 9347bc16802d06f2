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

package imapstore

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/imap"
)

const (
	DefaultName          = "Archive"
	DefaultReadyAttempts = 10

	readyInitialDelay = 50 * time.Millisecond
	readyMaxDelay     = 2 * time.Second
	cancelCheckEvery  = 100
)

type Config struct {
	Source        imap.ConnectionConfig
	SourceFactory imap.Factory

	// Dest is the account destinations are created in. If nil, the
	// source account is used and server-side MOVE/COPY become available.
	Dest        *imap.ConnectionConfig
	DestFactory imap.Factory

	// Name is the display name used to build destination names. Defaults
	// to the last segment of the source mailbox, or DefaultName.
	Name string

	// OutputPath is the parent of all destinations. When splitting within
	// a single account, mailboxes under it are never enumerated.
	OutputPath string

	// Capacity is the account quota in bytes. Zero infers it from the
	// account size.
	Capacity int64

	// ReadyAttempts bounds how many times a new destination is polled
	// before it is considered unusable.
	ReadyAttempts int

	// strategies overrides the transfer chain. Defaults to defaultStrategies().
	strategies []strategy

	Logger *log.Entry
}

// Store is a store.MailStore backed by one or two IMAP accounts.
// It is not safe for concurrent use.
type Store struct {
	cfg        Config
	name       string
	strategies []strategy
	log        *log.Entry

	src      imap.Client
	dst      imap.Client
	srcDelim string
	dstDelim string

	// srcMove and srcUidPlus record the source server's MOVE and UIDPLUS
	// support. Without them a move can only flag originals \Deleted.
	srcMove    bool
	srcUidPlus bool

	// flaggedOnly holds source mailboxes whose moved originals were left
	// flagged \Deleted because UID EXPUNGE is unavailable.
	flaggedOnly map[string]struct{}

	// created holds destination mailboxes already known to exist.
	created map[string]struct{}
}

// strategy is one way of getting a message from the source into a
// destination mailbox.
type strategy interface {
	Name() string
	Applicable(s *Store, job *transferJob) bool
	Transfer(ctx context.Context, s *Store, job *transferJob) error
}

type transferJob struct {
	uid     uint32
	mailbox string
	target  string
	move    bool
}
