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
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/vs49688/mailsplit/imap"
	mock_imap "github.com/vs49688/mailsplit/imap/mocks"
	"github.com/vs49688/mailsplit/store"
)

type factoryFunc func(cfg *imap.ConnectionConfig) (imap.Client, error)

func (f factoryFunc) NewClient(cfg *imap.ConnectionConfig) (imap.Client, error) {
	return f(cfg)
}

type fakeStrategy struct {
	name       string
	applicable bool
	err        error
	jobs       *[]transferJob
}

func (f fakeStrategy) Name() string { return f.name }

func (f fakeStrategy) Applicable(s *Store, job *transferJob) bool { return f.applicable }

func (f fakeStrategy) Transfer(ctx context.Context, s *Store, job *transferJob) error {
	*f.jobs = append(*f.jobs, *job)
	return f.err
}

// mockStore attaches a store to a single mock client using "." as the
// hierarchy delimiter.
func mockStore(t *testing.T, strategies ...strategy) (*Store, *mock_imap.MockClient) {
	ctrl := gomock.NewController(t)
	cli := mock_imap.NewMockClient(ctrl)

	cli.EXPECT().List("", "%", gomock.Any()).DoAndReturn(func(ref string, name string, ch chan *imap.MailboxInfo) error {
		ch <- &imap.MailboxInfo{Name: "INBOX", Delimiter: "."}
		close(ch)
		return nil
	}).Times(2)
	cli.EXPECT().Create(gomock.Any()).Return(nil).AnyTimes()
	cli.EXPECT().Support(gomock.Any()).Return(true, nil).Times(2)

	s := NewStore(&Config{
		SourceFactory: factoryFunc(func(cfg *imap.ConnectionConfig) (imap.Client, error) { return cli, nil }),
		strategies:    strategies,
	})
	if !assert.NoError(t, s.Attach(context.Background())) {
		t.FailNow()
	}

	assert.Equal(t, ".", s.srcDelim)
	assert.Equal(t, ".", s.dstDelim)
	assert.True(t, s.srcMove)
	assert.True(t, s.srcUidPlus)
	return s, cli
}

func TestChainFallsBack(t *testing.T) {
	var jobs []transferJob
	s, _ := mockStore(t,
		fakeStrategy{name: "skipped", applicable: false, jobs: &jobs},
		fakeStrategy{name: "first", applicable: true, err: errors.New("NO [CANNOT] unsupported"), jobs: &jobs},
		fakeStrategy{name: "second", applicable: true, jobs: &jobs},
	)

	err := s.TransferItem(context.Background(), "7:INBOX.Work", "Splits.mail_part001", "INBOX/Work", true)
	assert.NoError(t, err)

	want := transferJob{uid: 7, mailbox: "INBOX.Work", target: "Splits.mail_part001.INBOX.Work", move: true}
	assert.Equal(t, []transferJob{want, want}, jobs)
}

func TestChainQuotaStops(t *testing.T) {
	var jobs []transferJob
	s, _ := mockStore(t,
		fakeStrategy{name: "first", applicable: true, err: errors.New("NO [OVERQUOTA] Quota exceeded"), jobs: &jobs},
		fakeStrategy{name: "second", applicable: true, jobs: &jobs},
	)

	err := s.TransferItem(context.Background(), "1:INBOX", "Out", "", false)
	assert.ErrorIs(t, err, store.ErrCapacityExceeded)
	assert.Len(t, jobs, 1)
	assert.Equal(t, "Out", jobs[0].target)
}

func TestChainPartialStops(t *testing.T) {
	var jobs []transferJob
	s, _ := mockStore(t,
		fakeStrategy{name: "first", applicable: true, err: &partialError{Err: errors.New("expunge failed")}, jobs: &jobs},
		fakeStrategy{name: "second", applicable: true, jobs: &jobs},
	)

	err := s.TransferItem(context.Background(), "1:INBOX", "Out", "", true)
	var perr *partialError
	assert.ErrorAs(t, err, &perr)
	assert.Len(t, jobs, 1)
}

func TestChainLastError(t *testing.T) {
	var jobs []transferJob
	last := errors.New("last")
	s, _ := mockStore(t,
		fakeStrategy{name: "first", applicable: true, err: errors.New("first"), jobs: &jobs},
		fakeStrategy{name: "second", applicable: true, err: last, jobs: &jobs},
	)

	assert.Equal(t, last, s.TransferItem(context.Background(), "1:INBOX", "Out", "", false))
}

func TestChainNothingApplicable(t *testing.T) {
	var jobs []transferJob
	s, _ := mockStore(t, fakeStrategy{name: "never", jobs: &jobs})

	assert.ErrorIs(t, s.TransferItem(context.Background(), "1:INBOX", "Out", "", false), store.ErrUnsupported)
	assert.ErrorIs(t, s.TransferItem(context.Background(), "bogus", "Out", "", false), store.ErrNotFound)
	assert.Empty(t, jobs)
}

func TestMoveStrategy(t *testing.T) {
	s, cli := mockStore(t)

	gomock.InOrder(
		cli.EXPECT().Mailbox().Return(&imap.MailboxStatus{Name: "INBOX", ReadOnly: true}),
		cli.EXPECT().Select("INBOX", false).Return(&imap.MailboxStatus{Name: "INBOX"}, nil),
		cli.EXPECT().UidMove(gomock.Any(), "Out.INBOX").DoAndReturn(func(seqset *imap.SeqSet, dest string) error {
			assert.Equal(t, "5", seqset.String())
			return nil
		}),
	)

	assert.NoError(t, s.TransferItem(context.Background(), "5:INBOX", "Out", "INBOX", true))
}

func TestMoveNeedsCapability(t *testing.T) {
	s, cli := mockStore(t)
	s.srcMove = false

	cli.EXPECT().Mailbox().Return(&imap.MailboxStatus{Name: "INBOX"}).AnyTimes()
	gomock.InOrder(
		cli.EXPECT().UidCopy(gomock.Any(), "Out.INBOX").Return(nil),
		cli.EXPECT().UidStore(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
		cli.EXPECT().UidExpunge(gomock.Any()).Return(nil),
	)

	assert.NoError(t, s.TransferItem(context.Background(), "5:INBOX", "Out", "INBOX", true))
}

func TestDeleteOriginalExpungesOnlyUid(t *testing.T) {
	s, cli := mockStore(t)

	cli.EXPECT().Mailbox().Return(&imap.MailboxStatus{Name: "INBOX"}).AnyTimes()
	gomock.InOrder(
		cli.EXPECT().UidStore(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error {
				assert.Equal(t, "9", seqset.String())
				assert.Equal(t, []interface{}{`\Deleted`}, value)
				return nil
			}),
		cli.EXPECT().UidExpunge(gomock.Any()).DoAndReturn(func(seqset *imap.SeqSet) error {
			assert.Equal(t, "9", seqset.String())
			return nil
		}),
	)

	assert.NoError(t, deleteOriginal(s, &transferJob{uid: 9, mailbox: "INBOX", move: true}))
}

func TestDeleteOriginalWithoutUidPlus(t *testing.T) {
	s, cli := mockStore(t)
	s.srcUidPlus = false

	cli.EXPECT().Mailbox().Return(&imap.MailboxStatus{Name: "INBOX"}).AnyTimes()
	cli.EXPECT().UidStore(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	job := &transferJob{uid: 9, mailbox: "INBOX", move: true}
	assert.NoError(t, deleteOriginal(s, job))
	assert.NoError(t, deleteOriginal(s, job))
	assert.Contains(t, s.flaggedOnly, "INBOX")
}

func TestCopyStrategyQuota(t *testing.T) {
	s, cli := mockStore(t)

	cli.EXPECT().Mailbox().Return(&imap.MailboxStatus{Name: "INBOX", ReadOnly: true}).AnyTimes()
	cli.EXPECT().UidCopy(gomock.Any(), "Out").Return(errors.New("NO [OVERQUOTA] Mailbox is full"))

	err := s.TransferItem(context.Background(), "5:INBOX", "Out", "", false)
	assert.ErrorIs(t, err, store.ErrCapacityExceeded)
}

func TestCreateDestinationNotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	cli := mock_imap.NewMockClient(ctrl)

	cli.EXPECT().List("", "%", gomock.Any()).DoAndReturn(func(ref string, name string, ch chan *imap.MailboxInfo) error {
		close(ch)
		return nil
	}).Times(2)
	cli.EXPECT().Create(gomock.Any()).Return(nil).Times(2)
	cli.EXPECT().Support(gomock.Any()).Return(false, errors.New("BAD capability")).Times(2)
	cli.EXPECT().Status("Out/mail_part001", gomock.Any()).Return(nil, errors.New("NO no such mailbox")).Times(3)

	s := NewStore(&Config{
		SourceFactory: factoryFunc(func(cfg *imap.ConnectionConfig) (imap.Client, error) { return cli, nil }),
		ReadyAttempts: 3,
	})
	assert.NoError(t, s.Attach(context.Background()))

	_, err := s.CreateDestination(context.Background(), "Out/mail_part001")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not ready after 3 attempts")
}

func TestQuotaDetection(t *testing.T) {
	assert.True(t, isQuotaError(errors.New("NO [OVERQUOTA] Quota exceeded")))
	assert.True(t, isQuotaError(errors.New("Mailbox full")))
	assert.False(t, isQuotaError(errors.New("NO [TRYCREATE] no such mailbox")))
}
