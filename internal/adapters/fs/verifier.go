// Package fs provides the filesystem-backed adapter that checks a
// target's declared outputs actually exist on disk.
package fs

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Verifier checks that a target's declared outputs exist on disk,
// feeding the executor's out-of-date decision.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyOutputs reports whether every one of outputs exists relative to
// root. An output beginning with "/" is treated as already absolute and
// is statted as-is, matching how the executor resolves a target's
// working directory against its declared outputs.
func (v *Verifier) VerifyOutputs(root string, outputs []string) (bool, error) {
	for _, output := range outputs {
		path := output
		if output == "" || output[0] != '/' {
			path = filepath.Join(root, output)
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, zerr.With(zerr.Wrap(err, "failed to stat output"), "path", path)
		}
	}
	return true, nil
}
