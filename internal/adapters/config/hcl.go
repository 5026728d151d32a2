package config

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"go.trai.ch/anvil/internal/core/domain"
	"go.trai.ch/zerr"
)

// HCLLoader implements ports.ConfigLoader by reading a single HCL build
// file containing repeated `target` blocks:
//
//	target "generate" {
//	  command    = "go generate ./..."
//	  inputs     = ["gen/schema.json"]
//	  outputs    = ["internal/gen/schema.go"]
//	  depends_on = []
//	}
//
// Decoding is grounded on specialistvlad-burstgridgo's internal/schema
// labeled-block style; dependency linking is grounded on its
// internal/dag/links.go explicit depends_on handling, though every
// dependency here is explicit — this format has no implicit
// expression-traversal dependencies.
type HCLLoader struct {
	// Filename is the build file name looked up under the working
	// directory passed to Load, e.g. "build.hcl".
	Filename string
}

// NewHCLLoader creates an HCLLoader reading filename from each Load call's
// working directory.
func NewHCLLoader(filename string) *HCLLoader {
	return &HCLLoader{Filename: filename}
}

// targetBlock mirrors a single `target "name" { ... }` block.
type targetBlock struct {
	Name        string            `hcl:"name,label"`
	Command     string            `hcl:"command"`
	Inputs      []string          `hcl:"inputs,optional"`
	Outputs     []string          `hcl:"outputs,optional"`
	DependsOn   []string          `hcl:"depends_on,optional"`
	WorkingDir  string            `hcl:"working_dir,optional"`
	Environment map[string]string `hcl:"environment,optional"`
}

// buildConfig is the top-level decoded document.
type buildConfig struct {
	Targets []*targetBlock `hcl:"target,block"`
	Body    hcl.Body       `hcl:",remain"`
}

// Load reads and decodes the HCL build file under cwd into a DAG.
func (l *HCLLoader) Load(cwd string) (*domain.DAG, error) {
	path := filepath.Join(cwd, l.Filename)

	//nolint:gosec // path is derived from the engine's own working directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read build file"), "path", path)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, zerr.With(zerr.New("failed to parse build file"), "diagnostics", diags.Error())
	}

	var cfg buildConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, zerr.With(zerr.New("failed to decode build file"), "diagnostics", diags.Error())
	}

	names := make(map[string]bool, len(cfg.Targets))
	for _, b := range cfg.Targets {
		names[b.Name] = true
	}

	dag := domain.NewDAG()
	for _, b := range cfg.Targets {
		if b.Name == "all" {
			return nil, zerr.With(zerr.New("target name 'all' is reserved"), "target", b.Name)
		}
		for _, dep := range b.DependsOn {
			if !names[dep] {
				err := zerr.With(domain.ErrMissingDependency, "dependency", dep)
				return nil, zerr.With(err, "target", b.Name)
			}
		}

		target := &domain.Target{
			Name:         domain.NewInternedString(b.Name),
			Command:      b.Command,
			Inputs:       domain.NewInternedStrings(b.Inputs),
			Outputs:      domain.NewInternedStrings(canonicalize(b.Outputs)),
			Dependencies: domain.NewInternedStrings(b.DependsOn),
			Environment:  b.Environment,
			WorkingDir:   domain.NewInternedString(b.WorkingDir),
		}
		if err := dag.AddTarget(target); err != nil {
			return nil, err
		}
	}

	return dag, nil
}
