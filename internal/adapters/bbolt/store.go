// Package bbolt implements the ports.Store interface using bbolt (embedded
// B+ tree). Each site gets its own top-level bucket with "builds", "runs",
// and "releases" sub-buckets holding JSON-serialized records under zero-padded
// sequence keys, so chronological order is the natural bucket order. Writes
// are transactional — a crash mid-write cannot corrupt previously committed
// history.
package bbolt

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/reiken/berth/internal/ports"
)

// Bucket keys
var (
	bucketBuilds   = []byte("builds")
	bucketRuns     = []byte("runs")
	bucketReleases = []byte("releases")
)

// Store implements ports.Store backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path. The open
// timeout keeps a second berth process from hanging forever on the file lock.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendBuild records a completed build for a site.
func (s *Store) AppendBuild(site string, rec ports.BuildRecord) error {
	return s.append(site, bucketBuilds, rec)
}

// AppendRun records a container creation for a site.
func (s *Store) AppendRun(site string, rec ports.RunRecord) error {
	return s.append(site, bucketRuns, rec)
}

// AppendRelease records a completed push for a site.
func (s *Store) AppendRelease(site string, rec ports.ReleaseRecord) error {
	return s.append(site, bucketReleases, rec)
}

// append serializes rec into the site's sub-bucket under the next sequence
// key.
func (s *Store) append(site string, bucket []byte, rec any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		sb, err := tx.CreateBucketIfNotExists([]byte(site))
		if err != nil {
			return err
		}
		b, err := sb.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// LastRelease returns the newest release record for a site.
// Returns nil, nil if the site has never been released.
func (s *Store) LastRelease(site string) (*ports.ReleaseRecord, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		sb := tx.Bucket([]byte(site))
		if sb == nil {
			return nil
		}
		b := sb.Bucket(bucketReleases)
		if b == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if _, v := b.Cursor().Last(); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var rec ports.ReleaseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal release record: %w", err)
	}
	return &rec, nil
}

// History returns the site's builds, runs, and releases merged into one
// timeline, newest first. n <= 0 returns everything.
func (s *Store) History(site string, n int) ([]ports.HistoryEntry, error) {
	var entries []ports.HistoryEntry

	err := s.db.View(func(tx *bolt.Tx) error {
		sb := tx.Bucket([]byte(site))
		if sb == nil {
			return nil
		}

		if err := forEachRecord(sb, bucketBuilds, func(data []byte) error {
			var rec ports.BuildRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("unmarshal build record: %w", err)
			}
			entries = append(entries, ports.HistoryEntry{Kind: "build", At: rec.At, Build: &rec})
			return nil
		}); err != nil {
			return err
		}

		if err := forEachRecord(sb, bucketRuns, func(data []byte) error {
			var rec ports.RunRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("unmarshal run record: %w", err)
			}
			entries = append(entries, ports.HistoryEntry{Kind: "run", At: rec.At, Run: &rec})
			return nil
		}); err != nil {
			return err
		}

		return forEachRecord(sb, bucketReleases, func(data []byte) error {
			var rec ports.ReleaseRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("unmarshal release record: %w", err)
			}
			entries = append(entries, ports.HistoryEntry{Kind: "release", At: rec.At, Release: &rec})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.After(entries[j].At) })
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Wipe removes all history for a site.
// Idempotent: wiping a site with no history is not an error.
func (s *Store) Wipe(site string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(site)); err == bolt.ErrBucketNotFound {
			return nil // idempotent
		} else {
			return err
		}
	})
}

// forEachRecord iterates a sub-bucket's values in key order. The value bytes
// are only valid within the transaction, so callers must decode, not retain.
func forEachRecord(parent *bolt.Bucket, bucket []byte, fn func(data []byte) error) error {
	b := parent.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.ForEach(func(_, v []byte) error {
		return fn(v)
	})
}

// seqKey renders a bbolt sequence number as a fixed-width big-endian-sortable
// key.
func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%012d", seq))
}
