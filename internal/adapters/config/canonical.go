package config

import "slices"

// canonicalize sorts and deduplicates a list of output paths. It is never
// applied to input lists: input order participates in a target's
// fingerprint, so canonicalizing inputs would silently change which
// targets are considered up to date whenever a build file's input
// ordering changed without the underlying files changing.
func canonicalize(strs []string) []string {
	if len(strs) == 0 {
		return nil
	}
	sorted := make([]string, len(strs))
	copy(sorted, strs)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
