// Package fingerprint computes the content digests the cache and executor
// use to decide whether a target is out of date.
//
// Every function here is pure: given the same bytes, it returns the same
// digest, with no hidden state and no I/O beyond reading the paths it is
// handed. This mirrors original_source/include/mimir/signature.h's
// computeFileSignature/computeCommandSignature/computeTargetSignature
// triad, using the same xxhash wiring as the rest of this repository's
// content hashing but exposed as free functions rather than methods on
// an injected ports.Hasher, since nothing about hashing depends on
// runtime configuration.
package fingerprint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// HashFile computes the digest of a single file's contents. A file that
// cannot be opened contributes the empty string rather than an error —
// distinct from the digest of a genuinely empty file, which is always
// non-empty — so that a missing input surfaces as a command failure
// rather than aborting fingerprinting itself.
func HashFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is controlled by the caller's build definition
	if err != nil {
		return "", nil
	}
	defer f.Close() //nolint:errcheck // read-only handle, nothing to reconcile

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to hash file"), "path", path)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// HashCommand computes the digest of a command string in isolation.
func HashCommand(command string) string {
	h := xxhash.New()
	_, _ = h.WriteString(command)
	return fmt.Sprintf("%016x", h.Sum64())
}

// resolvedInput pairs an input's path with its pre-expanded concrete file
// list (a single element for a plain file, many for a directory or glob).
type resolvedInput struct {
	declared string
	files    []string
}

// ExpandInput resolves a single declared input (a file, directory, or glob
// pattern) against root into the concrete file paths it refers to. A
// directory expands to every regular file beneath it, sorted for
// determinism; a glob expands to its sorted matches; a plain file expands
// to itself. A declared input that matches nothing on disk — a missing
// plain file or a glob with no matches — expands to itself as a single
// entry: HashFile then contributes the empty digest for it rather than
// ExpandInput failing outright, so fingerprinting stays tolerant of
// missing inputs and lets the command itself surface the error.
func ExpandInput(root, declared string) ([]string, error) {
	path := filepath.Join(root, declared)

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		var files []string
		walkErr := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, p)
			}
			return nil
		})
		if walkErr != nil {
			return nil, zerr.With(zerr.Wrap(walkErr, "failed to walk input directory"), "path", path)
		}
		sort.Strings(files)
		return files, nil
	case err == nil:
		return []string{path}, nil
	default:
		matches, globErr := filepath.Glob(path)
		if globErr == nil && len(matches) > 0 {
			sort.Strings(matches)
			return matches, nil
		}
		return []string{path}, nil
	}
}

// HashTarget computes a target's input digest from its command and the
// concrete file contents its declared inputs expand to. Input order is
// preserved from the declaration — reordering inputs changes the digest
// even when the resolved file set is identical, per the target
// specification's ordering invariant. A missing input contributes the
// empty digest rather than failing the computation; the returned digest
// is always non-empty and stable even when some declared inputs don't
// exist on disk.
func HashTarget(root, command string, inputs []string) (string, error) {
	h := xxhash.New()
	_, _ = h.WriteString(command)
	_, _ = h.Write([]byte{0})

	for _, declared := range inputs {
		files, err := ExpandInput(root, declared)
		if err != nil {
			return "", err
		}
		for _, f := range files {
			digest, err := HashFile(f)
			if err != nil {
				return "", err
			}
			_, _ = h.WriteString(f)
			_, _ = h.Write([]byte{0})
			_, _ = h.WriteString(digest)
			_, _ = h.Write([]byte{0})
		}
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}
