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

package split

import (
	"context"
	"sync"

	"github.com/vs49688/mailsplit/store"
)

type fakeStore struct {
	mu sync.Mutex

	name   string
	items  []store.Item
	health store.HealthReport

	attachErr  error
	healthErr  error
	createErrs map[string]error
	failIDs    map[string]error
	panicIDs   map[string]bool

	// capacityErrs is the number of capacity errors to return for an id
	// before accepting it.
	capacityErrs map[string]int
	reclaimErr   error
	countOffset  int

	enumerateGate chan struct{}
	onTransfer    func(total int)

	attached    bool
	detached    bool
	reclaims    int
	created     []string
	dests       map[string][]string
	transferred int
}

func newFakeStore(items []store.Item) *fakeStore {
	return &fakeStore{
		name:         "archive",
		items:        items,
		health:       store.AnalyzeCapacity(1024, 0),
		createErrs:   map[string]error{},
		failIDs:      map[string]error{},
		panicIDs:     map[string]bool{},
		capacityErrs: map[string]int{},
		dests:        map[string][]string{},
	}
}

func (s *fakeStore) Name() string {
	return s.name
}

func (s *fakeStore) Extension() string {
	return ""
}

func (s *fakeStore) Attach(ctx context.Context) error {
	if s.attachErr != nil {
		return s.attachErr
	}
	s.attached = true
	return nil
}

func (s *fakeStore) Detach() error {
	s.detached = true
	return nil
}

func (s *fakeStore) HealthCheck(ctx context.Context) (store.HealthReport, error) {
	return s.health, s.healthErr
}

func (s *fakeStore) Enumerate(ctx context.Context, includeNonMail bool, fn func(store.Item) error) error {
	if s.enumerateGate != nil {
		select {
		case <-s.enumerateGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, it := range s.items {
		if err := fn(it); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) CreateDestination(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.createErrs[path]; ok {
		return "", err
	}

	s.created = append(s.created, path)
	return path, nil
}

func (s *fakeStore) TransferItem(ctx context.Context, itemID string, destRef string, folderPath string, move bool) error {
	s.mu.Lock()

	if s.panicIDs[itemID] {
		s.mu.Unlock()
		panic("driver fault")
	}

	if n := s.capacityErrs[itemID]; n > 0 {
		s.capacityErrs[itemID] = n - 1
		s.mu.Unlock()
		return store.ErrCapacityExceeded
	}

	if err, ok := s.failIDs[itemID]; ok {
		s.mu.Unlock()
		return err
	}

	s.dests[destRef] = append(s.dests[destRef], itemID)
	s.transferred++
	n, cb := s.transferred, s.onTransfer
	s.mu.Unlock()

	if cb != nil {
		cb(n)
	}
	return nil
}

func (s *fakeStore) Reclaim(ctx context.Context, destRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reclaims++
	return s.reclaimErr
}

func (s *fakeStore) CountItems(ctx context.Context, destRef string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dests[destRef]) + s.countOffset, nil
}
