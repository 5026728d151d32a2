package domain

import (
	"sort"

	"go.trai.ch/zerr"
)

// DAG is a directed acyclic graph of build targets keyed by name.
//
// Cycle detection and topological ordering are separate operations
// rather than a single combined pass: DetectCycles can be asked for a
// witness path independently of whether the caller ever needs an
// execution order, and TopologicalSort uses Kahn's algorithm over an
// explicit in-degree count rather than DFS post-ordering.
type DAG struct {
	targets map[InternedString]*Target
}

// NewDAG creates an empty DAG.
func NewDAG() *DAG {
	return &DAG{targets: make(map[InternedString]*Target)}
}

// AddTarget adds a target to the DAG. It returns ErrTargetAlreadyExists if
// a target with the same name is already present.
func (d *DAG) AddTarget(t *Target) error {
	if _, exists := d.targets[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrTargetAlreadyExists, "failed to add target"), "target", t.Name.String())
	}
	d.targets[t.Name] = t
	return nil
}

// RemoveTarget removes a target from the DAG. It reports whether a target
// with that name was present.
func (d *DAG) RemoveTarget(name InternedString) bool {
	if _, exists := d.targets[name]; !exists {
		return false
	}
	delete(d.targets, name)
	return true
}

// HasTarget reports whether a target with the given name exists.
func (d *DAG) HasTarget(name InternedString) bool {
	_, exists := d.targets[name]
	return exists
}

// GetTarget returns the target with the given name, or nil if absent.
func (d *DAG) GetTarget(name InternedString) *Target {
	return d.targets[name]
}

// TargetCount returns the number of targets in the DAG.
func (d *DAG) TargetCount() int {
	return len(d.targets)
}

// Empty reports whether the DAG has no targets.
func (d *DAG) Empty() bool {
	return len(d.targets) == 0
}

// Clear removes all targets from the DAG.
func (d *DAG) Clear() {
	d.targets = make(map[InternedString]*Target)
}

// AllTargets returns every target currently in the DAG, in no particular
// order.
func (d *DAG) AllTargets() []*Target {
	out := make([]*Target, 0, len(d.targets))
	for _, t := range d.targets {
		out = append(out, t)
	}
	return out
}

// Dependencies returns the direct dependency names of the named target, or
// nil if the target does not exist.
func (d *DAG) Dependencies(name InternedString) []InternedString {
	t, ok := d.targets[name]
	if !ok {
		return nil
	}
	return t.Dependencies
}

// Dependents returns the names of all targets that directly depend on the
// named target.
func (d *DAG) Dependents(name InternedString) []InternedString {
	var out []InternedString
	for _, t := range d.targets {
		for _, dep := range t.Dependencies {
			if dep == name {
				out = append(out, t.Name)
				break
			}
		}
	}
	return out
}

// ValidateDependencies checks that every dependency named by every target
// actually exists in the DAG. It returns the names of any missing
// dependencies; a nil/empty result means the DAG is self-consistent.
func (d *DAG) ValidateDependencies() []InternedString {
	var missing []InternedString
	for _, t := range d.targets {
		for _, dep := range t.Dependencies {
			if _, ok := d.targets[dep]; !ok {
				missing = append(missing, dep)
			}
		}
	}
	return missing
}

// CycleResult describes the outcome of cycle detection.
type CycleResult struct {
	HasCycle bool
	// Path holds the witness cycle, e.g. [A, B, C, A], when HasCycle is true.
	Path []InternedString
}

// DetectCycles runs a DFS over the dependency edges and returns a witness
// path the first time it closes a cycle. It does not require
// ValidateDependencies to have been called first, and does not build an
// execution order as a side effect.
func (d *DAG) DetectCycles() CycleResult {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[InternedString]int, len(d.targets))
	var stack []InternedString

	var visit func(name InternedString) CycleResult
	visit = func(name InternedString) CycleResult {
		state[name] = visiting
		stack = append(stack, name)

		if t, ok := d.targets[name]; ok {
			for _, dep := range t.Dependencies {
				switch state[dep] {
				case visiting:
					return CycleResult{HasCycle: true, Path: witnessPath(stack, dep)}
				case unvisited:
					if res := visit(dep); res.HasCycle {
						return res
					}
				}
			}
		}

		state[name] = done
		stack = stack[:len(stack)-1]
		return CycleResult{}
	}

	for name := range d.targets {
		if state[name] == unvisited {
			if res := visit(name); res.HasCycle {
				return res
			}
		}
	}
	return CycleResult{}
}

// witnessPath builds the cycle path "A -> B -> C -> A" from the current
// recursion stack and the node that closed the cycle.
func witnessPath(stack []InternedString, closing InternedString) []InternedString {
	start := 0
	for i, n := range stack {
		if n == closing {
			start = i
			break
		}
	}
	path := make([]InternedString, 0, len(stack)-start+1)
	path = append(path, stack[start:]...)
	path = append(path, closing)
	return path
}

// CyclePathString renders a cycle witness as "A -> B -> C -> A".
func CyclePathString(path []InternedString) string {
	s := ""
	for i, n := range path {
		if i > 0 {
			s += " -> "
		}
		s += n.String()
	}
	return s
}

// TopologicalSort returns target names ordered so every dependency
// precedes its dependents, using Kahn's algorithm over a reverse-adjacency
// (dependents) index and a FIFO ready queue. It returns ErrCycleDetected
// (with a witness path attached) if the DAG is not acyclic, and
// ErrMissingDependency if any dependency name does not resolve to a known
// target.
func (d *DAG) TopologicalSort() ([]InternedString, error) {
	if missing := d.ValidateDependencies(); len(missing) > 0 {
		return nil, zerr.With(zerr.Wrap(ErrMissingDependency, "topological sort failed"), "dependency", missing[0].String())
	}

	names := make([]InternedString, 0, len(d.targets))
	for name := range d.targets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })

	inDegree := make(map[InternedString]int, len(d.targets))
	dependents := make(map[InternedString][]InternedString, len(d.targets))
	for _, name := range names {
		if _, ok := inDegree[name]; !ok {
			inDegree[name] = 0
		}
		for _, dep := range d.targets[name].Dependencies {
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	// Seed the ready queue from the sorted name list rather than ranging
	// over inDegree directly: map iteration order is randomized per run,
	// which would make tie-breaking among simultaneously-ready targets
	// nondeterministic from one run to the next.
	var queue []InternedString
	for _, name := range names {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]InternedString, 0, len(d.targets))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(d.targets) {
		res := d.DetectCycles()
		if res.HasCycle {
			return nil, zerr.With(zerr.Wrap(ErrCycleDetected, "topological sort failed"), "cycle", CyclePathString(res.Path))
		}
		return nil, zerr.New("topological sort failed to order all targets")
	}

	return order, nil
}
