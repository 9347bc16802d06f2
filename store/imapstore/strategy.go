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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	goImap "github.com/emersion/go-imap"
	"github.com/emersion/go-message/mail"
	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/imap"
	"github.com/vs49688/mailsplit/metrics"
	"github.com/vs49688/mailsplit/store"
)

var errNoBody = errors.New("server returned no message body")

// partialError means a strategy changed server state before failing, so
// trying the next strategy could duplicate the message.
type partialError struct {
	Err error
}

func (e *partialError) Error() string {
	return fmt.Sprintf("partial transfer: %v", e.Err)
}

func (e *partialError) Unwrap() error {
	return e.Err
}

var quotaMarkers = []string{"quota", "overquota", "exceed", "mailbox full", "no space"}

func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func defaultStrategies() []strategy {
	return []strategy{moveStrategy{}, copyStrategy{}, appendStrategy{}}
}

func uidSet(uid uint32) *imap.SeqSet {
	seqset := new(goImap.SeqSet)
	seqset.AddNum(uid)
	return seqset
}

// deleteOriginal flags a source message as deleted and expunges that UID
// alone. Without UIDPLUS the message is left flagged, never expunged.
func deleteOriginal(s *Store, job *transferJob) error {
	if _, err := selectMailbox(s.src, job.mailbox, false); err != nil {
		return err
	}

	seqset := uidSet(job.uid)
	if err := s.src.UidStore(seqset, goImap.FormatFlagsOp(goImap.AddFlags, true), []interface{}{goImap.DeletedFlag}, nil); err != nil {
		return err
	}

	if s.srcUidPlus {
		return s.src.UidExpunge(seqset)
	}

	if _, ok := s.flaggedOnly[job.mailbox]; !ok {
		s.flaggedOnly[job.mailbox] = struct{}{}
		s.log.WithField("mailbox", job.mailbox).Warn("imapstore_uidplus_unsupported_originals_left_flagged")
	}
	return nil
}

type moveStrategy struct{}

func (moveStrategy) Name() string { return "move" }

func (moveStrategy) Applicable(s *Store, job *transferJob) bool {
	return job.move && s.SameAccount() && s.srcMove
}

func (moveStrategy) Transfer(ctx context.Context, s *Store, job *transferJob) error {
	if _, err := selectMailbox(s.src, job.mailbox, false); err != nil {
		return err
	}
	return s.src.UidMove(uidSet(job.uid), job.target)
}

type copyStrategy struct{}

func (copyStrategy) Name() string { return "copy" }

func (copyStrategy) Applicable(s *Store, job *transferJob) bool {
	return s.SameAccount()
}

func (copyStrategy) Transfer(ctx context.Context, s *Store, job *transferJob) error {
	if _, err := selectMailbox(s.src, job.mailbox, !job.move); err != nil {
		return err
	}

	if err := s.src.UidCopy(uidSet(job.uid), job.target); err != nil {
		return err
	}

	if job.move {
		if err := deleteOriginal(s, job); err != nil {
			return &partialError{Err: err}
		}
	}
	return nil
}

// appendStrategy downloads the message and uploads it to the destination.
// It works across accounts and servers.
type appendStrategy struct{}

func (appendStrategy) Name() string { return "append" }

func (appendStrategy) Applicable(s *Store, job *transferJob) bool {
	return true
}

func headerDate(raw []byte) time.Time {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return time.Time{}
	}
	defer mr.Close()

	date, err := mr.Header.Date()
	if err != nil {
		return time.Time{}
	}
	return date
}

func appendFlags(flags []string) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if f == goImap.RecentFlag {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (appendStrategy) Transfer(ctx context.Context, s *Store, job *transferJob) error {
	section, err := goImap.ParseBodySectionName(goImap.FetchRFC822)
	if err != nil {
		panic(err)
	}

	if _, err := selectMailbox(s.src, job.mailbox, !job.move); err != nil {
		return err
	}

	ch := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.src.UidFetch(uidSet(job.uid), []imap.FetchItem{goImap.FetchUid, goImap.FetchFlags, goImap.FetchInternalDate, goImap.FetchRFC822}, ch)
	}()

	var msg *imap.Message
	for m := range ch {
		if m.Uid == job.uid {
			msg = m
		}
	}

	if err := <-done; err != nil {
		return err
	}

	if msg == nil {
		return store.ErrNotFound
	}

	body := msg.GetBody(section)
	if body == nil {
		return errNoBody
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	date := msg.InternalDate
	if date.IsZero() {
		date = headerDate(raw)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dst.Append(job.target, appendFlags(msg.Flags), date, bytes.NewBuffer(raw)); err != nil {
		return err
	}

	if job.move {
		if err := deleteOriginal(s, job); err != nil {
			return &partialError{Err: err}
		}
	}
	return nil
}

func (s *Store) TransferItem(ctx context.Context, itemID string, destRef string, folderPath string, move bool) error {
	if s.src == nil || s.dst == nil {
		return errNotAttached
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	uid, mailbox, err := parseItemID(itemID)
	if err != nil {
		return err
	}

	job := &transferJob{
		uid:     uid,
		mailbox: mailbox,
		target:  s.target(destRef, folderPath),
		move:    move,
	}

	if err := s.ensureMailbox(ctx, job.target); err != nil {
		if isQuotaError(err) {
			return fmt.Errorf("%w: %v", store.ErrCapacityExceeded, err)
		}
		return err
	}

	var lastErr error
	for _, st := range s.strategies {
		if !st.Applicable(s, job) {
			continue
		}

		err := st.Transfer(ctx, s, job)
		if err == nil {
			metrics.StrategyAttempts.WithLabelValues(st.Name(), "success").Inc()
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		fields := log.Fields{
			"strategy": st.Name(),
			"item":     itemID,
			"target":   job.target,
		}

		if isQuotaError(err) {
			metrics.StrategyAttempts.WithLabelValues(st.Name(), "capacity").Inc()
			s.log.WithError(err).WithFields(fields).Warn("imapstore_capacity_exceeded")
			return fmt.Errorf("%w: %v", store.ErrCapacityExceeded, err)
		}

		metrics.StrategyAttempts.WithLabelValues(st.Name(), "failure").Inc()
		s.log.WithError(err).WithFields(fields).Debug("imapstore_strategy_failed")

		var perr *partialError
		if errors.As(err, &perr) {
			return err
		}
		lastErr = err
	}

	if lastErr == nil {
		return store.ErrUnsupported
	}
	return lastErr
}
