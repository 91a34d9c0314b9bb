package store

import (
	"sync"

	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/commits"
)

// MemStore is a mutex+map Store, directly adapted from
// storage/memory/memory.go's MemoryStorage for use in tests and as a
// reference implementation.
type MemStore struct {
	mu      sync.Mutex
	records map[lnwire.ChannelID]commits.HostedCommits
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[lnwire.ChannelID]commits.HostedCommits),
	}
}

func (ms *MemStore) Get(id lnwire.ChannelID) (commits.HostedCommits, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	hc, ok := ms.records[id]
	if !ok {
		return commits.HostedCommits{}, ErrNotFound
	}
	return hc, nil
}

func (ms *MemStore) Put(id lnwire.ChannelID, hc commits.HostedCommits) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.records[id] = hc
	return nil
}

func (ms *MemStore) List() ([]commits.HostedCommits, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]commits.HostedCommits, 0, len(ms.records))
	for _, hc := range ms.records {
		out = append(out, hc)
	}
	return out, nil
}

func (ms *MemStore) Delete(id lnwire.ChannelID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.records, id)
	return nil
}

// Make sure MemStore implements Store.
var _ Store = &MemStore{}
