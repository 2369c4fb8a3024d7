package node

import "strings"

// SplitPath splits a dotted NodeID path ("a.b.c") into its segments. A bare
// name (no dot) returns a single-element slice. Lookup is case-sensitive
// per spec §6.
func SplitPath(id string) []string {
	if id == "" {
		return nil
	}
	return strings.Split(id, ".")
}

// JoinPath reassembles path segments into a dotted NodeID.
func JoinPath(segments ...string) string {
	return strings.Join(segments, ".")
}

// HeadTail splits a path into its first segment and the remaining dotted
// path (empty if the path had a single segment). Layer nodes use this to
// peel off "does this path address one of my direct children" one level
// at a time while resolving a Resume/Fail target (spec §4.2).
func HeadTail(path string) (head, tail string) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return "", ""
	}
	if len(segments) == 1 {
		return segments[0], ""
	}
	return segments[0], JoinPath(segments[1:]...)
}
