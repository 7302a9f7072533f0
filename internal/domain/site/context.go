package site

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
)

// builtinExcludes never enter the build context regardless of .dockerignore:
// VCS metadata, berth's own state and config, and the ignore file itself.
// Keeping them out means even a `COPY . ...` dockerfile cannot leak them
// into an image.
var builtinExcludes = []string{
	".git",
	"**/.git",
	".berth",
	".dockerignore",
	"berth.yaml",
}

// dockerfileName is the archive path of the injected build file.
const dockerfileName = "Dockerfile"

// Context is an assembled build context: the dockerfile content plus every
// workspace file that accompanies it into the archive.
type Context struct {
	// Dockerfile is the rendered or user-provided build file content. It
	// is injected at the archive root regardless of where it came from.
	Dockerfile []byte
	// Files lists the included workspace files, sorted by archive path.
	Files []File
	// TotalBytes is the archive payload size: all files plus the
	// dockerfile.
	TotalBytes int64
	// HasIndex reports whether the site directory contains an index.html.
	// The server still starts without one; callers warn.
	HasIndex bool
	// Skipped lists site-dir entries left out for not being regular files
	// (symlinks, sockets, devices). Callers surface these as warnings;
	// non-regular files elsewhere in the workspace are dropped silently.
	Skipped []string
}

// File is one regular file bound for the archive.
type File struct {
	// ArchivePath is the slash-separated path inside the tar, identical
	// to the file's workspace-relative path.
	ArchivePath string
	// AbsPath locates the file on disk.
	AbsPath string
	Size    int64
	Mode    fs.FileMode
}

// Assemble builds the context for the workspace at root. The dockerfile is
// read from s.Dockerfile when set, rendered from s otherwise. The walk
// covers the whole workspace so user dockerfiles can copy files outside the
// site directory, with .dockerignore and the builtin excludes applied.
func Assemble(root string, s Spec) (*Context, error) {
	c := &Context{}

	if s.Dockerfile != "" {
		content, err := os.ReadFile(filepath.Join(root, s.Dockerfile))
		if err != nil {
			return nil, fmt.Errorf("read dockerfile %s: %w", s.Dockerfile, err)
		}
		c.Dockerfile = content
	} else {
		c.Dockerfile = RenderDockerfile(s)
	}

	siteDir := filepath.Join(root, s.Dir)
	if fi, err := os.Stat(siteDir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("site directory %q not found, run `berth init` to scaffold it", s.Dir)
	}
	if fi, err := os.Stat(filepath.Join(siteDir, "index.html")); err == nil && fi.Mode().IsRegular() {
		c.HasIndex = true
	}

	pm, err := loadIgnorePatterns(root)
	if err != nil {
		return nil, err
	}

	sitePrefix := filepath.ToSlash(filepath.Clean(s.Dir)) + "/"

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		skip, matchErr := pm.MatchesOrParentMatches(rel)
		if matchErr != nil {
			return fmt.Errorf("match %s against ignore patterns: %w", rel, matchErr)
		}
		if skip {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		// The on-disk dockerfile is superseded by the injected content;
		// including it too would duplicate the archive entry.
		if rel == dockerfileName || rel == filepath.ToSlash(s.Dockerfile) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		if !info.Mode().IsRegular() {
			// Symlinks are never followed, so a link pointing outside the
			// workspace cannot smuggle content into the archive.
			if strings.HasPrefix(rel, sitePrefix) {
				c.Skipped = append(c.Skipped, rel)
			}
			return nil
		}

		c.Files = append(c.Files, File{
			ArchivePath: rel,
			AbsPath:     p,
			Size:        info.Size(),
			Mode:        info.Mode(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}

	sort.Slice(c.Files, func(i, j int) bool { return c.Files[i].ArchivePath < c.Files[j].ArchivePath })
	sort.Strings(c.Skipped)

	siteSeen := false
	for _, f := range c.Files {
		c.TotalBytes += f.Size
		if strings.HasPrefix(f.ArchivePath, sitePrefix) {
			siteSeen = true
		}
	}
	c.TotalBytes += int64(len(c.Dockerfile))

	if !siteSeen {
		return nil, fmt.Errorf("site directory %q contains no files to serve", s.Dir)
	}
	return c, nil
}

// Tar writes the context as a tar stream: the dockerfile first, then every
// file in archive-path order. Headers are normalized (epoch mtime, root
// owner) so identical trees produce byte-identical archives.
func (c *Context) Tar(w io.Writer) error {
	tw := tar.NewWriter(w)

	if err := tw.WriteHeader(&tar.Header{
		Name:     dockerfileName,
		Mode:     0644,
		Size:     int64(len(c.Dockerfile)),
		ModTime:  time.Unix(0, 0),
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}); err != nil {
		return fmt.Errorf("write dockerfile header: %w", err)
	}
	if _, err := tw.Write(c.Dockerfile); err != nil {
		return fmt.Errorf("write dockerfile: %w", err)
	}

	for _, f := range c.Files {
		if err := writeFile(tw, f); err != nil {
			return fmt.Errorf("archive %s: %w", f.ArchivePath, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// TarContent writes only the files under the site directory, re-rooted so a
// "dir/index.html" entry becomes "index.html". This is the payload live sync
// extracts into a running container's web root; the dockerfile and anything a
// user build file copies from outside the site directory stay out.
func (c *Context) TarContent(dir string, w io.Writer) error {
	prefix := path.Clean(dir) + "/"
	tw := tar.NewWriter(w)
	for _, f := range c.Files {
		rel, ok := strings.CutPrefix(f.ArchivePath, prefix)
		if !ok {
			continue
		}
		rerooted := f
		rerooted.ArchivePath = rel
		if err := writeFile(tw, rerooted); err != nil {
			return fmt.Errorf("archive %s: %w", rel, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func writeFile(tw *tar.Writer, f File) error {
	src, err := os.Open(f.AbsPath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := tw.WriteHeader(&tar.Header{
		Name:     f.ArchivePath,
		Mode:     int64(f.Mode.Perm()),
		Size:     f.Size,
		ModTime:  time.Unix(0, 0),
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}); err != nil {
		return err
	}
	// A file that grew since Assemble would corrupt the stream; CopyN
	// keeps the payload honest and the next header aligned.
	if _, err := io.CopyN(tw, src, f.Size); err != nil {
		return err
	}
	return nil
}

// loadIgnorePatterns combines the builtin excludes with the workspace's
// .dockerignore, when present.
func loadIgnorePatterns(root string) (*patternmatcher.PatternMatcher, error) {
	patterns := append([]string{}, builtinExcludes...)

	f, err := os.Open(filepath.Join(root, ".dockerignore"))
	if err == nil {
		defer f.Close()
		user, readErr := ignorefile.ReadAll(f)
		if readErr != nil {
			return nil, fmt.Errorf("read .dockerignore: %w", readErr)
		}
		patterns = append(patterns, user...)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open .dockerignore: %w", err)
	}

	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("compile ignore patterns: %w", err)
	}
	return pm, nil
}
