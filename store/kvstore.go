package store

import (
	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/commits"
)

// hostedCommitsBucket is the single top-level bucket every channel
// record lives under, keyed by channelId, mirroring channeldb's
// per-purpose top-level bucket layout.
var hostedCommitsBucket = []byte("hosted-commits")

// KVStore persists HostedCommits in any kvdb.Backend (bbolt, etcd,
// sqlite/postgres via kvdb's sqlbase shim), the real embedded-KV
// abstraction replacing moonbeam's bespoke storage/filesystem.
type KVStore struct {
	db kvdb.Backend
}

// NewKVStore wraps an already-open backend. Opening the backend itself
// (picking a driver, a file path) is the caller's concern, matching how
// channeldb takes a kvdb.Backend rather than owning the open call.
func NewKVStore(db kvdb.Backend) (*KVStore, error) {
	err := kvdb.Update(db, func(tx kvdb.RwTx) error {
		_, err := tx.CreateTopLevelBucket(hostedCommitsBucket)
		return err
	}, func() {})
	if err != nil {
		return nil, err
	}
	return &KVStore{db: db}, nil
}

func (s *KVStore) Get(id lnwire.ChannelID) (commits.HostedCommits, error) {
	var hc commits.HostedCommits
	err := kvdb.View(s.db, func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(hostedCommitsBucket)
		if bucket == nil {
			return ErrNotFound
		}
		raw := bucket.Get(id[:])
		if raw == nil {
			return ErrNotFound
		}
		decoded, err := Decode(raw)
		if err != nil {
			return err
		}
		hc = decoded
		return nil
	}, func() {})
	return hc, err
}

func (s *KVStore) Put(id lnwire.ChannelID, hc commits.HostedCommits) error {
	encoded, err := Encode(hc)
	if err != nil {
		return err
	}
	return kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(hostedCommitsBucket)
		if bucket == nil {
			return ErrNotFound
		}
		return bucket.Put(id[:], encoded)
	}, func() {})
}

func (s *KVStore) List() ([]commits.HostedCommits, error) {
	var out []commits.HostedCommits
	err := kvdb.View(s.db, func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(hostedCommitsBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			hc, err := Decode(v)
			if err != nil {
				return err
			}
			out = append(out, hc)
			return nil
		})
	}, func() {})
	return out, err
}

func (s *KVStore) Delete(id lnwire.ChannelID) error {
	return kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(hostedCommitsBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(id[:])
	}, func() {})
}

// Make sure KVStore implements Store.
var _ Store = &KVStore{}
