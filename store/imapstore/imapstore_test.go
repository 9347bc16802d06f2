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
	"testing"
	"time"

	goImap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/vs49688/mailsplit/imap"
	"github.com/vs49688/mailsplit/internal"
	"github.com/vs49688/mailsplit/store"
)

var testDate = time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC)

func connConfig(srv *internal.TestServer, mailbox string) imap.ConnectionConfig {
	return imap.ConnectionConfig{
		HostPort: srv.Address,
		Auth:     imap.NewNormalAuthenticator("username", "password"),
		Mailbox:  mailbox,
	}
}

func populate(t *testing.T, srv *internal.TestServer) {
	internal.AddMessage(srv.Inbox, internal.MakeTestMessage(t, "a@example.com", testDate, "inbox mail"), testDate)
	internal.AddMessage(srv.Inbox, internal.MakeTestMessage(t, "", testDate, "a note"), testDate)

	archive := srv.Mailbox(t, "Archive")
	internal.AddMessage(archive, internal.MakeTestMessage(t, "b@Other.org", testDate, "archived"), testDate)

	sub := srv.Mailbox(t, "Archive/2020")
	internal.AddMessage(sub, internal.MakeTestMessage(t, "c@example.com", testDate.AddDate(0, 1, 0), "older"), testDate.AddDate(0, 1, 0))

	internal.AddMessage(srv.Mailbox(t, "Splits/mail_old"), internal.MakeTestMessage(t, "d@example.com", testDate, "old split"), testDate)
	internal.AddMessage(srv.Mailbox(t, "mail_2020"), internal.MakeTestMessage(t, "e@example.com", testDate, "older split"), testDate)
}

func attach(t *testing.T, cfg *Config) *Store {
	s := NewStore(cfg)
	if !assert.NoError(t, s.Attach(context.Background())) {
		t.FailNow()
	}
	t.Cleanup(func() { _ = s.Detach() })
	return s
}

func enumerate(t *testing.T, s *Store, includeNonMail bool) []store.Item {
	var items []store.Item
	err := s.Enumerate(context.Background(), includeNonMail, func(it store.Item) error {
		items = append(items, it)
		return nil
	})
	assert.NoError(t, err)
	return items
}

func itemIDs(items []store.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestNames(t *testing.T) {
	assert.Equal(t, DefaultName, NewStore(&Config{}).Name())
	assert.Equal(t, "Projects", NewStore(&Config{Source: imap.ConnectionConfig{Mailbox: "Work/Projects"}}).Name())
	assert.Equal(t, "pst", NewStore(&Config{Name: "pst"}).Name())
	assert.Equal(t, "", NewStore(&Config{}).Extension())
}

func TestItemID(t *testing.T) {
	uid, mb, err := parseItemID(makeItemID(42, "Archive/2020:odd"))
	assert.NoError(t, err)
	assert.Equal(t, uint32(42), uid)
	assert.Equal(t, "Archive/2020:odd", mb)

	for _, bad := range []string{"", ":INBOX", "x:INBOX", "0:INBOX", "INBOX"} {
		_, _, err := parseItemID(bad)
		assert.ErrorIs(t, err, store.ErrNotFound, bad)
	}
}

func TestEnumerate(t *testing.T) {
	srv := internal.BuildTestIMAPServer(t)
	populate(t, srv)

	s := attach(t, &Config{Source: connConfig(srv, ""), Name: "mail", OutputPath: "Splits"})

	items := enumerate(t, s, false)
	assert.Equal(t, []string{"1:Archive", "1:Archive/2020", "1:INBOX", "1:mail_2020"}, itemIDs(items))

	assert.Equal(t, "Archive", items[0].FolderPath)
	assert.Equal(t, "other.org", items[0].SenderDomain)
	assert.True(t, testDate.Equal(*items[0].ReceivedAt))
	assert.Equal(t, "Archive/2020", items[1].FolderPath)
	assert.Equal(t, "INBOX", items[2].FolderPath)
	assert.Greater(t, items[2].Size, int64(0))

	assert.Equal(t, "mail_2020", items[3].FolderPath)

	items = enumerate(t, s, true)
	assert.Equal(t, []string{"1:Archive", "1:Archive/2020", "1:INBOX", "2:INBOX", "1:mail_2020"}, itemIDs(items))
	assert.Equal(t, "", items[3].SenderDomain)
}

func TestEnumerateWithoutOutputPath(t *testing.T) {
	srv := internal.BuildTestIMAPServer(t)
	populate(t, srv)

	s := attach(t, &Config{Source: connConfig(srv, ""), Name: "mail"})

	items := enumerate(t, s, false)
	assert.Equal(t, []string{"1:Archive", "1:Archive/2020", "1:INBOX", "1:Splits/mail_old"}, itemIDs(items))
}

func TestEnumerateCrossAccountKeepsEverything(t *testing.T) {
	src := internal.BuildTestIMAPServer(t)
	dst := internal.BuildTestIMAPServer(t)
	populate(t, src)

	dstCfg := connConfig(dst, "")
	s := attach(t, &Config{Source: connConfig(src, ""), Dest: &dstCfg, Name: "mail", OutputPath: "Splits"})

	items := enumerate(t, s, false)
	assert.Equal(t, []string{"1:Archive", "1:Archive/2020", "1:INBOX", "1:Splits/mail_old", "1:mail_2020"}, itemIDs(items))
}

func TestEnumerateRoot(t *testing.T) {
	srv := internal.BuildTestIMAPServer(t)
	populate(t, srv)

	s := attach(t, &Config{Source: connConfig(srv, "Archive")})
	assert.Equal(t, "Archive", s.Name())

	items := enumerate(t, s, false)
	assert.Equal(t, []string{"1:Archive", "1:Archive/2020"}, itemIDs(items))
	assert.Equal(t, "", items[0].FolderPath)
	assert.Equal(t, "2020", items[1].FolderPath)
}

func TestEnumerateCancelled(t *testing.T) {
	srv := internal.BuildTestIMAPServer(t)
	populate(t, srv)

	s := attach(t, &Config{Source: connConfig(srv, ""), Name: "mail"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Enumerate(ctx, false, func(it store.Item) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNotAttached(t *testing.T) {
	s := NewStore(&Config{})
	ctx := context.Background()

	assert.ErrorIs(t, s.Enumerate(ctx, false, nil), errNotAttached)
	_, err := s.HealthCheck(ctx)
	assert.ErrorIs(t, err, errNotAttached)
	_, err = s.CreateDestination(ctx, "x")
	assert.ErrorIs(t, err, errNotAttached)
	assert.ErrorIs(t, s.TransferItem(ctx, "1:INBOX", "x", "", false), errNotAttached)
	assert.NoError(t, s.Detach())
}

func TestHealthCheck(t *testing.T) {
	srv := internal.BuildTestIMAPServer(t)
	populate(t, srv)

	var total int64
	for _, name := range []string{"INBOX", "Archive", "Archive/2020", "Splits/mail_old", "mail_2020"} {
		for _, m := range srv.Mailbox(t, name).Messages {
			total += int64(m.Size)
		}
	}

	s := attach(t, &Config{Source: connConfig(srv, ""), Name: "mail", Capacity: total * 2})

	report, err := s.HealthCheck(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, total, report.SizeBytes)
	assert.Equal(t, "quota", report.Format)
	assert.InDelta(t, 50.0, report.UtilizationPercent, 0.001)
	assert.Equal(t, store.RiskLow, report.Risk)
}

func TestTransferSameAccount(t *testing.T) {
	srv := internal.BuildTestIMAPServer(t)
	populate(t, srv)

	s := attach(t, &Config{Source: connConfig(srv, ""), Name: "mail", OutputPath: "Splits"})
	ctx := context.Background()

	ref, err := s.CreateDestination(ctx, "Splits/mail_part001")
	assert.NoError(t, err)
	assert.Equal(t, "Splits/mail_part001", ref)

	ref2, err := s.CreateDestination(ctx, "Splits/mail_part001")
	assert.NoError(t, err)
	assert.Equal(t, ref, ref2)

	// Copy leaves the source alone.
	assert.NoError(t, s.TransferItem(ctx, "1:Archive/2020", ref, "Archive/2020", false))
	assert.Len(t, srv.Mailbox(t, "Archive/2020").Messages, 1)
	assert.Len(t, srv.Mailbox(t, "Splits/mail_part001/Archive/2020").Messages, 1)

	// Without UIDPLUS a move leaves the original flagged.
	assert.NoError(t, s.TransferItem(ctx, "1:INBOX", ref, "INBOX", true))
	assert.Len(t, srv.Mailbox(t, "Splits/mail_part001/INBOX").Messages, 1)
	if assert.Len(t, srv.Inbox.Messages, 2) {
		assert.Contains(t, srv.Inbox.Messages[0].Flags, goImap.DeletedFlag)
		assert.NotContains(t, srv.Inbox.Messages[1].Flags, goImap.DeletedFlag)
	}

	count, err := s.CountItems(ctx, ref)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTransferCrossAccount(t *testing.T) {
	src := internal.BuildTestIMAPServer(t)
	dst := internal.BuildTestIMAPServer(t)
	populate(t, src)

	dstCfg := connConfig(dst, "")
	s := attach(t, &Config{Source: connConfig(src, ""), Dest: &dstCfg, Name: "mail"})
	assert.False(t, s.SameAccount())
	ctx := context.Background()

	ref, err := s.CreateDestination(ctx, "mail_2020")
	assert.NoError(t, err)

	assert.NoError(t, s.TransferItem(ctx, "1:Archive", ref, "Archive", true))
	if orig := src.Mailbox(t, "Archive").Messages; assert.Len(t, orig, 1) {
		assert.Contains(t, orig[0].Flags, goImap.DeletedFlag)
	}

	msgs := dst.Mailbox(t, "mail_2020/Archive").Messages
	if assert.Len(t, msgs, 1) {
		assert.True(t, testDate.Equal(msgs[0].Date))
		assert.Contains(t, msgs[0].Flags, goImap.SeenFlag)
	}

	count, err := s.CountItems(ctx, ref)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMoveLeavesOtherDeletedMessages(t *testing.T) {
	src := internal.BuildTestIMAPServer(t)
	dst := internal.BuildTestIMAPServer(t)

	internal.AddMessage(src.Inbox, internal.MakeTestMessage(t, "a@example.com", testDate, "moving"), testDate)
	internal.AddMessage(src.Inbox, internal.MakeTestMessage(t, "b@example.com", testDate, "bystander"), testDate, goImap.DeletedFlag)

	dstCfg := connConfig(dst, "")
	s := attach(t, &Config{Source: connConfig(src, ""), Dest: &dstCfg, Name: "mail"})
	ctx := context.Background()

	ref, err := s.CreateDestination(ctx, "mail_2020")
	assert.NoError(t, err)

	assert.NoError(t, s.TransferItem(ctx, "1:INBOX", ref, "INBOX", true))
	assert.Len(t, dst.Mailbox(t, "mail_2020/INBOX").Messages, 1)

	if assert.Len(t, src.Inbox.Messages, 2) {
		assert.Equal(t, uint32(1), src.Inbox.Messages[0].Uid)
		assert.Contains(t, src.Inbox.Messages[0].Flags, goImap.DeletedFlag)
		assert.Equal(t, uint32(2), src.Inbox.Messages[1].Uid)
	}
}

func TestReclaim(t *testing.T) {
	srv := internal.BuildTestIMAPServer(t)
	s := attach(t, &Config{Source: connConfig(srv, ""), Name: "mail"})
	ctx := context.Background()

	ref, err := s.CreateDestination(ctx, "Out/mail_part001")
	assert.NoError(t, err)

	mb := srv.Mailbox(t, "Out/mail_part001")
	internal.AddMessage(mb, internal.MakeTestMessage(t, "a@example.com", testDate, "keep"), testDate)
	internal.AddMessage(mb, internal.MakeTestMessage(t, "a@example.com", testDate, "gone"), testDate, goImap.DeletedFlag)

	count, err := s.CountItems(ctx, ref)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, s.Reclaim(ctx, ref))

	count, err = s.CountItems(ctx, ref)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
