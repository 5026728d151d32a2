package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/anvil/internal/core/domain"
	"go.trai.ch/zerr"
)

// BuildfileLoader implements ports.ConfigLoader for a terse,
// Makefile-like line-oriented format:
//
//	name: dep1 dep2
//	  in  src/main.go src/*.go
//	  out bin/app
//		go build -o bin/app ./...
//
// A target starts at column zero with "name:" followed by a
// space-separated dependency list. Indented, non-tab-prefixed lines
// starting with "in " or "out " declare inputs/outputs (space separated,
// $VAR-substituted, glob-expanded for inputs at load time is NOT done
// here — expansion happens at fingerprint time so the declared pattern,
// not its expansion, is what participates in re-declaration diffing).
// A tab-indented line is the build command; only one command line per
// target is supported. "$VAR" references are substituted from the
// process environment when the file is read.
//
// Grounded stylistically on original_source's variable-substitution and
// glob-expansion behavior, expressed as a line-oriented grammar instead
// of the YAML/TOML original_source/include/mimir/parser.h actually used.
type BuildfileLoader struct {
	Filename string
}

// NewBuildfileLoader creates a BuildfileLoader reading filename from each
// Load call's working directory.
func NewBuildfileLoader(filename string) *BuildfileLoader {
	return &BuildfileLoader{Filename: filename}
}

type buildfileTarget struct {
	name      string
	dependsOn []string
	inputs    []string
	outputs   []string
	command   string
}

// Load reads and parses the Buildfile under cwd into a DAG.
func (l *BuildfileLoader) Load(cwd string) (*domain.DAG, error) {
	path := filepath.Join(cwd, l.Filename)

	//nolint:gosec // path is derived from the engine's own working directory
	f, err := os.Open(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open build file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	targets, err := parseBuildfile(f)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}

	names := make(map[string]bool, len(targets))
	for _, t := range targets {
		names[t.name] = true
	}

	dag := domain.NewDAG()
	for _, t := range targets {
		if t.name == "all" {
			return nil, zerr.With(zerr.New("target name 'all' is reserved"), "target", t.name)
		}
		for _, dep := range t.dependsOn {
			if !names[dep] {
				e := zerr.With(domain.ErrMissingDependency, "dependency", dep)
				return nil, zerr.With(e, "target", t.name)
			}
		}

		target := &domain.Target{
			Name:         domain.NewInternedString(t.name),
			Command:      t.command,
			Inputs:       domain.NewInternedStrings(t.inputs),
			Outputs:      domain.NewInternedStrings(canonicalize(t.outputs)),
			Dependencies: domain.NewInternedStrings(t.dependsOn),
		}
		if err := dag.AddTarget(target); err != nil {
			return nil, err
		}
	}

	return dag, nil
}

func parseBuildfile(f *os.File) ([]*buildfileTarget, error) {
	var targets []*buildfileTarget
	var current *buildfileTarget

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" || strings.HasPrefix(strings.TrimSpace(raw), "#") {
			continue
		}

		switch {
		case strings.HasPrefix(raw, "\t"):
			if current == nil {
				return nil, zerr.New("command line outside of any target")
			}
			current.command = expandVars(strings.TrimSpace(raw))

		case !strings.HasPrefix(raw, " ") && !strings.HasPrefix(raw, "\t"):
			name, rest, ok := strings.Cut(raw, ":")
			if !ok {
				return nil, zerr.With(zerr.New("malformed target header, expected \"name:\""), "line", raw)
			}
			current = &buildfileTarget{name: strings.TrimSpace(name)}
			if deps := strings.Fields(rest); len(deps) > 0 {
				current.dependsOn = deps
			}
			targets = append(targets, current)

		default:
			line := strings.TrimSpace(raw)
			if current == nil {
				return nil, zerr.New("declaration outside of any target")
			}
			switch {
			case strings.HasPrefix(line, "in "):
				current.inputs = append(current.inputs, expandAll(strings.Fields(line[3:]))...)
			case strings.HasPrefix(line, "out "):
				current.outputs = append(current.outputs, expandAll(strings.Fields(line[4:]))...)
			default:
				return nil, zerr.With(zerr.New("unrecognized declaration, expected \"in\" or \"out\""), "line", line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.Wrap(err, "failed to scan build file")
	}

	return targets, nil
}

func expandAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = expandVars(f)
	}
	return out
}

func expandVars(s string) string {
	return os.Expand(s, os.Getenv)
}
