// Package tags computes the image tags a delivery pushes: one derived from
// the commit, plus whatever extras the manifest configures. Tags are never
// hand-written into the manifest; deriving them here keeps every pushed image
// traceable to a revision.
package tags

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/distribution/reference"

	"github.com/reiken/berth/internal/ports"
)

// tagRe anchors the reference grammar's tag expression, which on its own
// matches substrings.
var tagRe = regexp.MustCompile(`^` + reference.TagRegexp.String() + `$`)

// abbrevLen matches the short-hash width used in the release records and CLI
// output. Twelve hex characters is collision-safe for any repository a static
// site lives in.
const abbrevLen = 12

// maxTagLen is the reference grammar's tag length limit.
const maxTagLen = 128

// Derive returns the tag list for a push: the commit-derived primary first,
// then the extras with duplicates and empties dropped, original order kept.
// The primary is the abbreviated hash, suffixed with "-dirty" when the
// worktree had uncommitted changes, so a locally modified build can never
// masquerade as the commit it claims to be.
func Derive(rev ports.Revision, extra ...string) []string {
	primary := Abbrev(rev.Hash)
	if rev.Dirty {
		primary += "-dirty"
	}

	out := []string{primary}
	seen := map[string]bool{primary: true}
	for _, t := range extra {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Valid reports whether s is a well-formed image tag on its own.
func Valid(s string) bool {
	return tagRe.MatchString(s)
}

// Abbrev shortens a full commit hash to the display/tag width.
func Abbrev(hash string) string {
	if len(hash) > abbrevLen {
		return hash[:abbrevLen]
	}
	return hash
}

// Sanitize coerces an arbitrary string, typically a branch name, into a
// valid tag: lowercased, every character outside the tag grammar mapped to
// "-", leading separators trimmed, clamped to the length limit. Returns ""
// when nothing survives.
func Sanitize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.TrimLeft(b.String(), ".-")
	if len(out) > maxTagLen {
		out = out[:maxTagLen]
	}
	return out
}

// WithTag joins a repository and tag into a full reference, re-validating
// the tag against the reference grammar.
func WithTag(repo reference.Named, tag string) (reference.NamedTagged, error) {
	tagged, err := reference.WithTag(repo, tag)
	if err != nil {
		return nil, fmt.Errorf("tag %q on %s: %w", tag, repo.Name(), err)
	}
	return tagged, nil
}
