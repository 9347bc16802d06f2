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

package imap

//go:generate mockgen -destination=mocks/client.go -package=mock_imap . Client,Authenticatable

import (
	"crypto/tls"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-sasl"
)

// Client is the subset of the go-imap client used by the store.
type Client interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)

	List(ref string, name string, ch chan *imap.MailboxInfo) error

	Create(name string) error

	Status(name string, items []imap.StatusItem) (*imap.MailboxStatus, error)

	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error

	UidCopy(seqset *imap.SeqSet, dest string) error

	UidMove(seqset *imap.SeqSet, dest string) error

	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error

	Expunge(ch chan uint32) error

	// UidExpunge permanently removes only the given UIDs. It requires
	// UIDPLUS (RFC 4315).
	UidExpunge(seqset *imap.SeqSet) error

	Support(cap string) (bool, error)

	Append(mbox string, flags []string, date time.Time, msg imap.Literal) error

	Mailbox() *imap.MailboxStatus

	Logout() error

	LoggedOut() <-chan struct{}
}

// Authenticatable is what an Authenticator needs from a connection.
type Authenticatable interface {
	Login(username string, password string) error
	Authenticate(auth sasl.Client) error
}

type Authenticator interface {
	Authenticate(c Authenticatable) error
}

type ConnectionConfig struct {
	HostPort string
	Auth     Authenticator
	// Mailbox is the root mailbox the connection is scoped to, "" for the
	// whole account.
	Mailbox   string
	TLS       bool
	TLSConfig *tls.Config
	Debug     bool
}

type Factory interface {
	NewClient(cfg *ConnectionConfig) (Client, error)
}

type Message = imap.Message
type MailboxInfo = imap.MailboxInfo
type SeqSet = imap.SeqSet
type StoreItem = imap.StoreItem
type MailboxStatus = imap.MailboxStatus
type FetchItem = imap.FetchItem
type StatusItem = imap.StatusItem
type Literal = imap.Literal
