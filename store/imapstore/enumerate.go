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
	"fmt"
	"sort"
	"strings"
	"time"

	goImap "github.com/emersion/go-imap"
	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/imap"
	"github.com/vs49688/mailsplit/store"
)

func (s *Store) sourceRoot() string {
	return toNative(s.cfg.Source.Mailbox, s.srcDelim)
}

// isOutput reports whether a source mailbox was produced by a split. With
// an output parent configured only mailboxes beneath it qualify; otherwise
// top-level mailboxes named "<name>_..." do.
func (s *Store) isOutput(name string) bool {
	if !s.SameAccount() {
		return false
	}

	if out := toNative(s.cfg.OutputPath, s.srcDelim); out != "" {
		return hasPrefixPath(name, out, s.srcDelim)
	}

	top := name
	if i := strings.Index(name, s.srcDelim); i >= 0 {
		top = name[:i]
	}
	return strings.HasPrefix(top, s.name+"_")
}

// folderPath converts a native source mailbox into a canonical path
// relative to the source root.
func (s *Store) folderPath(name string) string {
	root := s.sourceRoot()
	if root != "" {
		if name == root {
			return ""
		}
		name = strings.TrimPrefix(name, root+s.srcDelim)
	}
	return toCanonical(name, s.srcDelim)
}

func (s *Store) sourceMailboxes(includeOutputs bool) ([]string, error) {
	names, err := listMailboxes(s.src, s.sourceRoot(), s.srcDelim)
	if err != nil {
		return nil, err
	}

	if includeOutputs {
		return names, nil
	}

	out := names[:0]
	for _, n := range names {
		if s.isOutput(n) {
			s.log.WithField("mailbox", n).Info("imapstore_skip_output_mailbox")
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// walk fetches items for every message in mailbox, calling fn for each.
// fn errors stop processing but the fetch is always drained.
func (s *Store) walk(ctx context.Context, mailbox string, items []imap.FetchItem, fn func(msg *imap.Message) error) error {
	status, err := selectMailbox(s.src, mailbox, true)
	if err != nil {
		return fmt.Errorf("unable to select %v: %w", mailbox, err)
	}

	if status.Messages == 0 {
		return nil
	}

	seqset := new(goImap.SeqSet)
	seqset.AddRange(1, 0)

	ch := make(chan *imap.Message, 20)
	done := make(chan error, 1)
	go func() { done <- s.src.UidFetch(seqset, items, ch) }()

	var msgs []*imap.Message
	for msg := range ch {
		msgs = append(msgs, msg)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("unable to fetch %v: %w", mailbox, err)
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Uid < msgs[j].Uid })

	for i, msg := range msgs {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if err := fn(msg); err != nil {
			return err
		}
	}
	return nil
}

func receivedAt(msg *imap.Message) *time.Time {
	if !msg.InternalDate.IsZero() {
		t := msg.InternalDate
		return &t
	}

	if msg.Envelope != nil && !msg.Envelope.Date.IsZero() {
		t := msg.Envelope.Date
		return &t
	}

	return nil
}

func senderDomain(msg *imap.Message) string {
	if msg.Envelope == nil {
		return ""
	}

	for _, addr := range msg.Envelope.From {
		if addr != nil && addr.HostName != "" {
			return strings.ToLower(addr.HostName)
		}
	}
	return ""
}

// isMail reports whether a message looks like an email. Anything without
// a From address is treated as non-mail.
func isMail(msg *imap.Message) bool {
	if msg.Envelope == nil {
		return false
	}

	for _, addr := range msg.Envelope.From {
		if addr != nil && (addr.MailboxName != "" || addr.HostName != "") {
			return true
		}
	}
	return false
}

func (s *Store) Enumerate(ctx context.Context, includeNonMail bool, fn func(store.Item) error) error {
	if s.src == nil {
		return errNotAttached
	}

	mailboxes, err := s.sourceMailboxes(false)
	if err != nil {
		return fmt.Errorf("unable to list source mailboxes: %w", err)
	}

	items := []imap.FetchItem{goImap.FetchUid, goImap.FetchRFC822Size, goImap.FetchInternalDate, goImap.FetchEnvelope}

	for _, mb := range mailboxes {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := s.folderPath(mb)
		count, skipped := 0, 0
		err := s.walk(ctx, mb, items, func(msg *imap.Message) error {
			if !includeNonMail && !isMail(msg) {
				skipped++
				return nil
			}

			count++
			return fn(store.Item{
				ID:           makeItemID(msg.Uid, mb),
				Size:         int64(msg.Size),
				ReceivedAt:   receivedAt(msg),
				FolderPath:   path,
				SenderDomain: senderDomain(msg),
			})
		})
		if err != nil {
			return err
		}

		s.log.WithFields(log.Fields{
			"mailbox":  mb,
			"folder":   path,
			"items":    count,
			"non_mail": skipped,
		}).Debug("imapstore_folder_enumerated")
	}

	return nil
}

func (s *Store) HealthCheck(ctx context.Context) (store.HealthReport, error) {
	if s.src == nil {
		return store.HealthReport{}, errNotAttached
	}

	mailboxes, err := s.sourceMailboxes(true)
	if err != nil {
		return store.HealthReport{}, fmt.Errorf("unable to list source mailboxes: %w", err)
	}

	var size int64
	for _, mb := range mailboxes {
		if err := ctx.Err(); err != nil {
			return store.HealthReport{}, err
		}

		err := s.walk(ctx, mb, []imap.FetchItem{goImap.FetchUid, goImap.FetchRFC822Size}, func(msg *imap.Message) error {
			size += int64(msg.Size)
			return nil
		})
		if err != nil {
			return store.HealthReport{}, err
		}
	}

	report := store.AnalyzeCapacity(size, s.cfg.Capacity)
	s.log.WithFields(log.Fields{
		"size":        size,
		"capacity":    report.CapacityBytes,
		"utilization": report.UtilizationPercent,
		"risk":        report.Risk,
	}).Info("imapstore_health_checked")
	return report, nil
}
