package ports

import "time"

// Store persists delivery history to durable storage. The backing store
// (bbolt) is site-scoped: each site name gets its own namespace. History is
// append-only; records are never rewritten.
//
// Crash safety: appends must be transactional. A crash mid-write must not
// corrupt previously committed records.
type Store interface {
	// AppendBuild records a completed image build.
	AppendBuild(site string, rec BuildRecord) error

	// AppendRun records a container creation.
	AppendRun(site string, rec RunRecord) error

	// AppendRelease records a completed push of one or more tags.
	AppendRelease(site string, rec ReleaseRecord) error

	// LastRelease returns the most recent release for a site.
	// Returns nil, nil if the site has never been released.
	LastRelease(site string) (*ReleaseRecord, error)

	// History returns up to n most recent records across all kinds,
	// newest first. n <= 0 means all.
	History(site string, n int) ([]HistoryEntry, error)

	// Wipe removes all records for a site. Idempotent: wiping an unknown
	// site is not an error.
	Wipe(site string) error

	// Close closes the underlying database.
	Close() error
}

// BuildRecord describes one engine build.
type BuildRecord struct {
	ID           string    `json:"id"`
	Ref          string    `json:"ref"`           // primary tag the build was given
	ImageID      string    `json:"image_id"`      // engine image ID ("sha256:...")
	ContextBytes int64     `json:"context_bytes"` // tar stream size
	Files        int       `json:"files"`         // files in the build context
	DurationMs   int64     `json:"duration_ms"`
	At           time.Time `json:"at"`
}

// RunRecord describes one container creation.
type RunRecord struct {
	ID        string    `json:"id"`
	Container string    `json:"container"` // container name
	Image     string    `json:"image"`
	HostPort  int       `json:"host_port"`
	At        time.Time `json:"at"`
}

// ReleaseRecord describes one multi-tag push. Digest is the registry manifest
// digest all tags resolve to.
type ReleaseRecord struct {
	ID         string    `json:"id"`
	Repository string    `json:"repository"`
	Tags       []string  `json:"tags"`
	Digest     string    `json:"digest"`
	Revision   string    `json:"revision"` // abbreviated commit hash, "" if no repo
	Dirty      bool      `json:"dirty"`
	At         time.Time `json:"at"`
}

// HistoryEntry is one record of any kind, for the mixed history view.
// Exactly one of Build, Run, Release is non-nil, matching Kind.
type HistoryEntry struct {
	Kind    string         `json:"kind"` // "build", "run", "release"
	At      time.Time      `json:"at"`
	Build   *BuildRecord   `json:"build,omitempty"`
	Run     *RunRecord     `json:"run,omitempty"`
	Release *ReleaseRecord `json:"release,omitempty"`
}
