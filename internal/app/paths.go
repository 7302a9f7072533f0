package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths for the .berth/ state directory.
// All fields are pre-computed strings — zero-alloc access after construction.
type Paths struct {
	Root string // .berth/
	DB   string // .berth/history.db

	// Dockerfile is where the most recently used build file is mirrored,
	// so operators can inspect exactly what the engine saw.
	Dockerfile string // .berth/Dockerfile

	RunDir   string // .berth/run/
	PortFile string // .berth/run/preview.port
}

// NewPaths constructs all resolved paths from a workspace root directory.
func NewPaths(workspaceRoot string) *Paths {
	root := filepath.Join(workspaceRoot, ".berth")
	return &Paths{
		Root:       root,
		DB:         filepath.Join(root, "history.db"),
		Dockerfile: filepath.Join(root, "Dockerfile"),

		RunDir:   filepath.Join(root, "run"),
		PortFile: filepath.Join(root, "run", "preview.port"),
	}
}

// EnsureDirs creates all subdirectories under .berth/. Idempotent.
func (p *Paths) EnsureDirs() error {
	dirs := []string{
		p.Root,
		p.RunDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes runtime files that only mean something while a
// process is alive. Called by `berth clean` and on preview shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PortFile)
}
