package config

import (
	"os"
	"path/filepath"

	"go.trai.ch/anvil/internal/core/domain"
	"go.trai.ch/anvil/internal/core/ports"
	"go.trai.ch/zerr"
)

// CompositeLoader implements ports.ConfigLoader by picking whichever of
// the two supported build file flavours is present in a working
// directory, preferring the terser Buildfile format when both exist.
type CompositeLoader struct {
	BuildfileName string
	HCLFilename   string
}

// NewCompositeLoader creates a CompositeLoader using the conventional
// "Buildfile" and "build.hcl" filenames.
func NewCompositeLoader() *CompositeLoader {
	return &CompositeLoader{BuildfileName: "Buildfile", HCLFilename: "build.hcl"}
}

// Load delegates to whichever loader's file exists under cwd.
func (l *CompositeLoader) Load(cwd string) (*domain.DAG, error) {
	var tried []string

	if exists(filepath.Join(cwd, l.BuildfileName)) {
		return (&BuildfileLoader{Filename: l.BuildfileName}).Load(cwd)
	}
	tried = append(tried, l.BuildfileName)

	if exists(filepath.Join(cwd, l.HCLFilename)) {
		return (&HCLLoader{Filename: l.HCLFilename}).Load(cwd)
	}
	tried = append(tried, l.HCLFilename)

	err := zerr.New("no build file found")
	err = zerr.With(err, "tried", tried)
	return nil, zerr.With(err, "cwd", cwd)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var _ ports.ConfigLoader = (*CompositeLoader)(nil)
var _ ports.ConfigLoader = (*HCLLoader)(nil)
var _ ports.ConfigLoader = (*BuildfileLoader)(nil)
