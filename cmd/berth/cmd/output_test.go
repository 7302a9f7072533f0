package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reiken/berth/internal/app"
	"github.com/reiken/berth/internal/manifest"
	"github.com/reiken/berth/internal/ports"
)

func TestShortDigest(t *testing.T) {
	full := "sha256:9f86d0818a3fd95f2a2d1b9e2e7f4c6a8b0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f"
	assert.Equal(t, "9f86d0818a3f", shortDigest(full))
	assert.Equal(t, "not-a-digest", shortDigest("not-a-digest"))
	assert.Equal(t, "sha256:short", shortDigest("sha256:short"))
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "unknown", ago(time.Time{}))
	assert.True(t, strings.HasSuffix(ago(time.Now().Add(-3*time.Hour)), " ago"))
}

func TestFormatStatus_Running(t *testing.T) {
	out := formatStatus(&app.SiteStatus{
		Site: "landing",
		Container: &ports.ContainerState{
			Name:          "landing",
			Running:       true,
			Status:        "running",
			HostPort:      8080,
			ContainerPort: 80,
			StartedAt:     time.Now().Add(-time.Hour),
		},
		ImageRef: "landing:4f2d9a81c3e7",
		Image:    &ports.ImageSummary{ID: "sha256:abc", Size: 24 << 20, Created: time.Now().Add(-time.Hour)},
		LastBuild: &ports.BuildRecord{
			Ref: "landing:4f2d9a81c3e7", Files: 3, At: time.Now().Add(-time.Hour),
		},
		LastRelease: &ports.ReleaseRecord{
			Repository: "ghcr.io/acme/landing",
			Tags:       []string{"4f2d9a81c3e7", "latest"},
			At:         time.Now().Add(-2 * time.Hour),
		},
	})

	assert.Contains(t, out, "landing")
	assert.Contains(t, out, "✓ running")
	assert.Contains(t, out, "localhost:8080 → container 80")
	assert.Contains(t, out, "landing:4f2d9a81c3e7")
	assert.Contains(t, out, "ghcr.io/acme/landing [4f2d9a81c3e7, latest]")
}

func TestFormatStatus_NothingYet(t *testing.T) {
	out := formatStatus(&app.SiteStatus{Site: "landing", ImageRef: "landing:dev"})
	assert.Contains(t, out, "not created")
	assert.Contains(t, out, "berth run")
	assert.Contains(t, out, "berth build")
}

func TestFormatHistory(t *testing.T) {
	now := time.Now()
	out := formatHistory([]ports.HistoryEntry{
		{Kind: "release", At: now, Release: &ports.ReleaseRecord{
			Repository: "ghcr.io/acme/landing",
			Tags:       []string{"4f2d9a81c3e7", "latest"},
			Digest:     "sha256:9f86d0818a3fd95f2a2d1b9e2e7f4c6a8b0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f",
			At:         now,
		}},
		{Kind: "run", At: now, Run: &ports.RunRecord{Container: "landing", HostPort: 8080, At: now}},
		{Kind: "build", At: now, Build: &ports.BuildRecord{
			Ref: "landing:4f2d9a81c3e7", Files: 3, ContextBytes: 14_000, DurationMs: 1200, At: now,
		}},
	})

	assert.Contains(t, out, "3 records")
	assert.Contains(t, out, "9f86d0818a3f")
	assert.NotContains(t, out, "sha256:9f86d0818a3fd95f", "digests are truncated")
	assert.Contains(t, out, "landing on :8080")
	assert.Contains(t, out, "3 files")
	assert.Contains(t, out, "1.2s")
}

func TestAuthStrategy(t *testing.T) {
	ecr := &manifest.Manifest{}
	ecr.Registry.ECR = &manifest.ECR{Region: "eu-central-1"}
	assert.Contains(t, authStrategy(ecr), "eu-central-1")

	static := &manifest.Manifest{}
	static.Registry.Username = "bob"
	static.Registry.PasswordEnv = "REGISTRY_PASSWORD"
	got := authStrategy(static)
	assert.Contains(t, got, "bob")
	assert.Contains(t, got, "$REGISTRY_PASSWORD", "env var is named, value never read")

	assert.Contains(t, authStrategy(&manifest.Manifest{}), "docker login")
}
