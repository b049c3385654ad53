package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// State errors, distinct from configuration errors: the caller is expected
// to check Extracted() before acting, or treat these as "no-op needed".
var (
	ErrAlreadyExtracted = errors.New("archive already extracted")
	ErrNotExtracted     = errors.New("archive not extracted")
)

// Job identifies one unit of work: a sidecar filelist and a compressed
// archive of article XML files. The working directory is derived from the
// archive path and is the single source of the extracted/not-extracted state.
type Job struct {
	FilelistPath string
	ArchivePath  string

	workDir   string
	extracted *bool // cached Extracted() result, nil until first check
}

// NewJob validates that both inputs exist and derives the working directory
// (sibling of the archive, named after it minus the compression suffix).
func NewJob(filelistPath, archivePath string) (*Job, error) {
	for _, p := range []string{filelistPath, archivePath} {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input file %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("input file %s: is a directory", p)
		}
	}

	base := filepath.Base(archivePath)
	base = strings.TrimSuffix(base, ".tar.gz")
	base = strings.TrimSuffix(base, ".tgz")
	return &Job{
		FilelistPath: filelistPath,
		ArchivePath:  archivePath,
		workDir:      filepath.Join(filepath.Dir(archivePath), base),
	}, nil
}

// WorkDir returns the directory the archive extracts into.
func (j *Job) WorkDir() string { return j.workDir }

// Extracted reports whether the working directory exists. The check is
// cached; mutating calls invalidate the cache.
func (j *Job) Extracted() bool {
	if j.extracted != nil {
		return *j.extracted
	}
	_, err := os.Stat(j.workDir)
	state := err == nil
	j.extracted = &state
	return state
}

func (j *Job) invalidate() { j.extracted = nil }

// Extract decompresses the archive into the working directory and removes
// every retracted document named in the sidecar. Extraction lands in a
// temporary sibling directory first and is renamed into place, so the
// working directory is never visible half-populated.
func (j *Job) Extract(ctx context.Context, logger *slog.Logger) error {
	if j.Extracted() {
		return ErrAlreadyExtracted
	}

	partial := j.workDir + ".partial"
	// A leftover partial directory means a previous run died mid-extract.
	if err := os.RemoveAll(partial); err != nil {
		return fmt.Errorf("remove stale partial dir %s: %w", partial, err)
	}

	logger.Info("Extracting archive.", slog.String("archive", j.ArchivePath), slog.String("work_dir", j.workDir))
	if err := j.untar(ctx, partial); err != nil {
		os.RemoveAll(partial)
		j.invalidate()
		return err
	}
	if err := os.Rename(partial, j.workDir); err != nil {
		os.RemoveAll(partial)
		j.invalidate()
		return fmt.Errorf("rename %s to %s: %w", partial, j.workDir, err)
	}
	j.invalidate()

	excluded, err := j.Excluded()
	if err != nil {
		return fmt.Errorf("compute excluded documents: %w", err)
	}
	logger.Info("Removing retracted documents.", slog.Int("count", len(excluded)))
	var removeErrs error
	for _, path := range excluded {
		if err := os.Remove(path); err != nil {
			removeErrs = errors.Join(removeErrs, fmt.Errorf("remove retracted %s: %w", path, err))
		}
	}
	return removeErrs
}

func (j *Job) untar(ctx context.Context, dest string) error {
	f, err := os.Open(j.ArchivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", j.ArchivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip reader for %s: %w", j.ArchivePath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("mkdir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("mkdir parent of %s: %w", target, err)
			}
			out, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close %s: %w", target, err)
			}
		default:
			// Symlinks and other entry types are not expected in baseline
			// archives; skip rather than materialize them.
		}
	}
}

// securePath rejects tar member names that would escape the destination.
func securePath(dest, name string) (string, error) {
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("tar entry %q escapes extraction directory", name)
	}
	return filepath.Join(dest, cleaned), nil
}

// documentRoot locates the folder holding the article files. Baseline
// archives contain exactly one top-level directory; if more than one entry
// exists, the first in sorted listing order is used. That matches the
// upstream archive layout assumption and has not been observed otherwise.
func (j *Job) documentRoot() (string, error) {
	entries, err := os.ReadDir(j.workDir)
	if err != nil {
		return "", fmt.Errorf("list work dir %s: %w", j.workDir, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("work dir %s contains no nested folder", j.workDir)
	}
	return filepath.Join(j.workDir, entries[0].Name()), nil
}

// Documents returns the article file paths inside the archive's nested
// top-level folder, in sorted order. Fails with ErrNotExtracted before
// Extract has run.
func (j *Job) Documents() ([]string, error) {
	if !j.Extracted() {
		return nil, ErrNotExtracted
	}
	root, err := j.documentRoot()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list documents in %s: %w", root, err)
	}
	docs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		docs = append(docs, filepath.Join(root, e.Name()))
	}
	sort.Strings(docs)
	return docs, nil
}

// Excluded computes the exclusion set: documents flagged retracted in the
// sidecar that are actually present after extraction. Sidecar entries with
// no matching file are silently ignored.
func (j *Job) Excluded() ([]string, error) {
	if !j.Extracted() {
		return nil, ErrNotExtracted
	}
	retracted, err := parseSidecar(j.FilelistPath)
	if err != nil {
		return nil, err
	}
	docs, err := j.Documents()
	if err != nil {
		return nil, err
	}

	present := make(map[string]string, len(docs))
	for _, d := range docs {
		present[filepath.Base(d)] = d
	}
	var excluded []string
	for name := range retracted {
		if path, ok := present[name]; ok {
			excluded = append(excluded, path)
		}
	}
	sort.Strings(excluded)
	return excluded, nil
}

// Cleanup removes the working directory. Fails with ErrNotExtracted if
// there is nothing to clean up; calling it twice without a re-extract is a
// precondition violation, not a silent success.
func (j *Job) Cleanup() error {
	if !j.Extracted() {
		return ErrNotExtracted
	}
	if err := os.RemoveAll(j.workDir); err != nil {
		return fmt.Errorf("remove work dir %s: %w", j.workDir, err)
	}
	j.invalidate()
	return nil
}
