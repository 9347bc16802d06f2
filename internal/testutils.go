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

package internal

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/emersion/go-message"
	"github.com/stretchr/testify/assert"
)

type TestServer struct {
	Server  *server.Server
	Address string
	User    backend.User
	Inbox   *memory.Mailbox
}

// BuildTestIMAPServer starts an in-memory IMAP server with an empty INBOX
// for "username"/"password".
func BuildTestIMAPServer(t *testing.T) *TestServer {
	be := memory.New()
	user, err := be.Login(nil, "username", "password")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	mb, err := user.GetMailbox("INBOX")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	mailbox := mb.(*memory.Mailbox)
	mailbox.Messages = nil

	s := server.New(be)
	t.Cleanup(func() { _ = s.Close() })

	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	go func() { _ = s.Serve(l) }()

	return &TestServer{
		Server:  s,
		Address: l.Addr().String(),
		User:    user,
		Inbox:   mailbox,
	}
}

// Mailbox returns the named mailbox, creating it if needed.
func (s *TestServer) Mailbox(t *testing.T, name string) *memory.Mailbox {
	mb, err := s.User.GetMailbox(name)
	if err != nil {
		if !assert.NoError(t, s.User.CreateMailbox(name)) {
			t.FailNow()
		}

		mb, err = s.User.GetMailbox(name)
	}

	if !assert.NoError(t, err) {
		t.FailNow()
	}

	return mb.(*memory.Mailbox)
}

// MakeTestMessage builds an RFC822 message. An empty from omits the From
// header entirely.
func MakeTestMessage(t *testing.T, from string, date time.Time, subject string) []byte {
	hdr := message.Header{}
	if from != "" {
		hdr.Add("From", from)
	}
	hdr.Add("To", "to@example.com")
	hdr.Add("Subject", subject)
	hdr.Add("Date", date.Format(time.RFC1123Z))
	hdr.Add("Content-Type", "text/plain")
	hdr.Add("Message-ID", "<"+strings.ReplaceAll(subject, " ", ".")+"@example.com>")

	msg, err := message.New(hdr, strings.NewReader("Привет!"))
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	bb := new(bytes.Buffer)
	if !assert.NoError(t, msg.WriteTo(bb)) {
		t.FailNow()
	}

	return bb.Bytes()
}

// AddMessage appends a message directly to the backend and returns its UID.
func AddMessage(mb *memory.Mailbox, body []byte, date time.Time, flags ...string) uint32 {
	uid := uint32(1)
	if n := len(mb.Messages); n > 0 {
		uid = mb.Messages[n-1].Uid + 1
	}

	mb.Messages = append(mb.Messages, &memory.Message{
		Uid:   uid,
		Date:  date,
		Size:  uint32(len(body)),
		Flags: append([]string{imap.SeenFlag}, flags...),
		Body:  body,
	})

	return uid
}
