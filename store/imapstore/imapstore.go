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

// Package imapstore implements store.MailStore on top of IMAP accounts.
package imapstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	goImap "github.com/emersion/go-imap"
	log "github.com/sirupsen/logrus"
	"github.com/vs49688/mailsplit/imap"
	"github.com/vs49688/mailsplit/imap/client"
	"github.com/vs49688/mailsplit/store"
)

var errNotAttached = errors.New("store not attached")

func NewStore(cfg *Config) *Store {
	ourCfg := *cfg

	if ourCfg.SourceFactory == nil {
		ourCfg.SourceFactory = client.Factory{}
	}

	if ourCfg.DestFactory == nil {
		ourCfg.DestFactory = ourCfg.SourceFactory
	}

	if ourCfg.ReadyAttempts <= 0 {
		ourCfg.ReadyAttempts = DefaultReadyAttempts
	}

	s := &Store{
		cfg:         ourCfg,
		name:        ourCfg.Name,
		strategies:  ourCfg.strategies,
		log:         ourCfg.Logger,
		created:     map[string]struct{}{},
		flaggedOnly: map[string]struct{}{},
	}

	if s.name == "" {
		root := strings.Trim(ourCfg.Source.Mailbox, "/")
		if i := strings.LastIndexAny(root, "/."); i >= 0 {
			root = root[i+1:]
		}
		if root == "" {
			root = DefaultName
		}
		s.name = root
	}

	if len(s.strategies) == 0 {
		s.strategies = defaultStrategies()
	}

	if s.log == nil {
		s.log = log.NewEntry(log.StandardLogger())
	}

	return s
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Extension() string {
	return ""
}

// SameAccount reports whether destinations live in the source account.
func (s *Store) SameAccount() bool {
	return s.cfg.Dest == nil
}

func (s *Store) destConfig() *imap.ConnectionConfig {
	if s.cfg.Dest != nil {
		return s.cfg.Dest
	}
	return &s.cfg.Source
}

func (s *Store) Attach(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := s.cfg.SourceFactory.NewClient(&s.cfg.Source)
	if err != nil {
		return fmt.Errorf("unable to connect to source: %w", err)
	}

	dst, err := s.cfg.DestFactory.NewClient(s.destConfig())
	if err != nil {
		_ = src.Logout()
		return fmt.Errorf("unable to connect to destination: %w", err)
	}

	s.src, s.dst = src, dst
	s.srcDelim = delimiter(src)
	s.dstDelim = delimiter(dst)
	s.srcMove = s.supports(src, "MOVE")
	s.srcUidPlus = s.supports(src, "UIDPLUS")

	s.log.WithFields(log.Fields{
		"source":       s.cfg.Source.HostPort,
		"destination":  s.destConfig().HostPort,
		"same_account": s.SameAccount(),
		"src_delim":    s.srcDelim,
		"dst_delim":    s.dstDelim,
		"src_move":     s.srcMove,
		"src_uidplus":  s.srcUidPlus,
	}).Info("imapstore_attached")
	return nil
}

func (s *Store) Detach() error {
	var errs []error

	if s.src != nil {
		if err := s.src.Logout(); err != nil {
			errs = append(errs, fmt.Errorf("source logout failed: %w", err))
		}
	}

	if s.dst != nil {
		if err := s.dst.Logout(); err != nil {
			errs = append(errs, fmt.Errorf("destination logout failed: %w", err))
		}
	}

	s.src, s.dst = nil, nil
	s.created = map[string]struct{}{}
	s.flaggedOnly = map[string]struct{}{}
	s.log.Info("imapstore_detached")
	return errors.Join(errs...)
}

func (s *Store) supports(cli imap.Client, cap string) bool {
	ok, err := cli.Support(cap)
	if err != nil {
		s.log.WithError(err).WithField("capability", cap).Warn("imapstore_capability_check_failed")
		return false
	}
	return ok
}

// delimiter returns the hierarchy delimiter of the account, or "/" if
// the server won't say.
func delimiter(cli imap.Client) string {
	ch := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() { done <- cli.List("", "%", ch) }()

	delim := ""
	for info := range ch {
		if delim == "" && info.Delimiter != "" {
			delim = info.Delimiter
		}
	}

	if err := <-done; err != nil {
		log.WithError(err).Warn("imapstore_delimiter_query_failed")
	}

	if delim == "" {
		delim = store.Separator
	}
	return delim
}

func toNative(path string, delim string) string {
	path = strings.Trim(path, store.Separator)
	if delim == store.Separator {
		return path
	}
	return strings.ReplaceAll(path, store.Separator, delim)
}

func toCanonical(name string, delim string) string {
	if delim == store.Separator {
		return name
	}
	return strings.ReplaceAll(name, delim, store.Separator)
}

func hasPrefixPath(name string, parent string, delim string) bool {
	return name == parent || strings.HasPrefix(name, parent+delim)
}

// listMailboxes returns the selectable mailboxes at or below root, sorted.
func listMailboxes(cli imap.Client, root string, delim string) ([]string, error) {
	pattern := "*"
	if root != "" {
		pattern = root + delim + "*"
	}

	var names []string
	collect := func(pattern string) error {
		ch := make(chan *imap.MailboxInfo, 10)
		done := make(chan error, 1)
		go func() { done <- cli.List("", pattern, ch) }()

		for info := range ch {
			if hasAttr(info.Attributes, goImap.NoSelectAttr) {
				continue
			}
			names = append(names, info.Name)
		}
		return <-done
	}

	if root != "" {
		if err := collect(root); err != nil {
			return nil, err
		}
	}

	if err := collect(pattern); err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

func hasAttr(attrs []string, attr string) bool {
	for _, a := range attrs {
		if strings.EqualFold(a, attr) {
			return true
		}
	}
	return false
}

// selectMailbox selects name on cli unless it is already selected with
// sufficient access.
func selectMailbox(cli imap.Client, name string, readOnly bool) (*imap.MailboxStatus, error) {
	if mb := cli.Mailbox(); mb != nil && mb.Name == name && (readOnly || !mb.ReadOnly) {
		return mb, nil
	}
	return cli.Select(name, readOnly)
}

func makeItemID(uid uint32, mailbox string) string {
	return strconv.FormatUint(uint64(uid), 10) + ":" + mailbox
}

func parseItemID(id string) (uint32, string, error) {
	i := strings.IndexByte(id, ':')
	if i <= 0 {
		return 0, "", fmt.Errorf("%w: malformed item id %q", store.ErrNotFound, id)
	}

	uid, err := strconv.ParseUint(id[:i], 10, 32)
	if err != nil || uid == 0 {
		return 0, "", fmt.Errorf("%w: malformed item id %q", store.ErrNotFound, id)
	}

	return uint32(uid), id[i+1:], nil
}
