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
	"strings"
	"time"

	goImap "github.com/emersion/go-imap"
	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/imap"
)

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ensureMailbox creates name and each of its parents on the destination
// account, tolerating ones that already exist.
func (s *Store) ensureMailbox(ctx context.Context, name string) error {
	if _, ok := s.created[name]; ok {
		return nil
	}

	parts := strings.Split(name, s.dstDelim)
	for i := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}

		prefix := strings.Join(parts[:i+1], s.dstDelim)
		if _, ok := s.created[prefix]; ok {
			continue
		}

		if err := s.dst.Create(prefix); err != nil {
			if _, serr := s.dst.Status(prefix, []imap.StatusItem{goImap.StatusMessages}); serr != nil {
				return fmt.Errorf("unable to create %v: %w", prefix, err)
			}
		} else {
			s.log.WithField("mailbox", prefix).Debug("imapstore_mailbox_created")
		}

		s.created[prefix] = struct{}{}
	}

	return nil
}

// waitReady polls a new mailbox until the server reports it, backing off
// exponentially between attempts.
func (s *Store) waitReady(ctx context.Context, name string) error {
	delay := readyInitialDelay
	var err error

	for attempt := 1; attempt <= s.cfg.ReadyAttempts; attempt++ {
		if _, err = s.dst.Status(name, []imap.StatusItem{goImap.StatusMessages}); err == nil {
			return nil
		}

		s.log.WithError(err).WithFields(log.Fields{
			"mailbox": name,
			"attempt": attempt,
			"delay":   delay,
		}).Debug("imapstore_destination_not_ready")

		if attempt == s.cfg.ReadyAttempts {
			break
		}

		if serr := sleepCtx(ctx, delay); serr != nil {
			return serr
		}

		delay *= 2
		if delay > readyMaxDelay {
			delay = readyMaxDelay
		}
	}

	return fmt.Errorf("destination %v not ready after %v attempts: %w", name, s.cfg.ReadyAttempts, err)
}

func (s *Store) CreateDestination(ctx context.Context, path string) (string, error) {
	if s.dst == nil {
		return "", errNotAttached
	}

	name := toNative(path, s.dstDelim)
	if name == "" {
		return "", fmt.Errorf("empty destination path")
	}

	if err := s.ensureMailbox(ctx, name); err != nil {
		return "", err
	}

	if err := s.waitReady(ctx, name); err != nil {
		delete(s.created, name)
		return "", err
	}

	s.log.WithFields(log.Fields{
		"path":    path,
		"mailbox": name,
	}).Info("imapstore_destination_created")
	return name, nil
}

// target returns the native destination mailbox for an item.
func (s *Store) target(destRef string, folderPath string) string {
	if sub := toNative(folderPath, s.dstDelim); sub != "" {
		return destRef + s.dstDelim + sub
	}
	return destRef
}

func (s *Store) Reclaim(ctx context.Context, destRef string) error {
	if s.dst == nil {
		return errNotAttached
	}

	mailboxes, err := listMailboxes(s.dst, destRef, s.dstDelim)
	if err != nil {
		return fmt.Errorf("unable to list %v: %w", destRef, err)
	}

	for _, mb := range mailboxes {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := selectMailbox(s.dst, mb, false); err != nil {
			return fmt.Errorf("unable to select %v: %w", mb, err)
		}

		if err := s.dst.Expunge(nil); err != nil {
			return fmt.Errorf("unable to expunge %v: %w", mb, err)
		}
	}

	s.log.WithFields(log.Fields{
		"destination": destRef,
		"mailboxes":   len(mailboxes),
	}).Info("imapstore_reclaimed")
	return nil
}

func (s *Store) CountItems(ctx context.Context, destRef string) (int, error) {
	if s.dst == nil {
		return 0, errNotAttached
	}

	mailboxes, err := listMailboxes(s.dst, destRef, s.dstDelim)
	if err != nil {
		return 0, fmt.Errorf("unable to list %v: %w", destRef, err)
	}

	total := 0
	for _, mb := range mailboxes {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		status, err := s.dst.Status(mb, []imap.StatusItem{goImap.StatusMessages})
		if err != nil {
			return 0, fmt.Errorf("unable to query %v: %w", mb, err)
		}
		total += int(status.Messages)
	}

	return total, nil
}
