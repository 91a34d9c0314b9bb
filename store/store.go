// Package store defines the persistent HostedCommits backing store
// (spec.md §6, "the persistent store (modeled as STORE(data))") and
// provides two implementations: memstore for tests and kvstore for
// real on-disk persistence.
package store

import (
	"errors"

	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/commits"
)

// ErrNotFound is returned by Get when no record exists for the given
// channel id, generalizing storage.ErrNotFound.
var ErrNotFound = errors.New("store: record not found")

// Store is the persistence interface every hosted-channel driver is
// built against (spec.md §6), generalizing storage.Storage from a
// single-record-per-funding-tx model to one record per channel id.
type Store interface {
	Get(id lnwire.ChannelID) (commits.HostedCommits, error)
	Put(id lnwire.ChannelID, hc commits.HostedCommits) error
	List() ([]commits.HostedCommits, error)
	Delete(id lnwire.ChannelID) error
}
