package pathval

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Limits mirror the ltree extension's own limits.
const (
	// MaxLabelLen is the maximum length of a single label in characters.
	MaxLabelLen = 255

	// MaxLevels is the maximum number of labels in a path.
	MaxLevels = 65535
)

// PathValue is an immutable dot-separated label path, e.g. "science.astronomy.cosmology".
//
// A PathValue is the in-memory counterpart of a backend ltree value. The
// zero value is the empty path (zero levels), which is itself a valid
// ltree value and an ancestor of every path.
//
// All operations are pure: they never mutate the receiver and return new
// values. PathValue is safe to share across goroutines.
type PathValue struct {
	labels []string
}

// Parse validates and normalizes a path string.
//
// Labels are sequences of alphanumerics, underscores, and hyphens,
// separated by single dots. Input is NFC-normalized before validation so
// that two spellings of the same label compare equal.
//
// The empty string parses to the empty path.
func Parse(s string) (PathValue, error) {
	s = norm.NFC.String(s)
	if s == "" {
		return PathValue{}, nil
	}

	labels := strings.Split(s, ".")
	if len(labels) > MaxLevels {
		return PathValue{}, fmt.Errorf("path has %d levels, max is %d", len(labels), MaxLevels)
	}
	for i, label := range labels {
		if err := checkLabel(label); err != nil {
			return PathValue{}, fmt.Errorf("label %d: %w", i, err)
		}
	}
	return PathValue{labels: labels}, nil
}

// MustParse is Parse that panics on invalid input.
// Intended for constants and tests.
func MustParse(s string) PathValue {
	p, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("pathval: MustParse(%q): %v", s, err))
	}
	return p
}

// checkLabel validates a single label against ltree's charset rules.
func checkLabel(label string) error {
	if label == "" {
		return fmt.Errorf("empty label")
	}
	if len(label) > MaxLabelLen {
		return fmt.Errorf("label longer than %d characters", MaxLabelLen)
	}
	for _, r := range label {
		if !isLabelRune(r) {
			return fmt.Errorf("invalid character %q in label %q", r, label)
		}
	}
	return nil
}

func isLabelRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}

// String returns the dot-separated text form. The empty path renders as "".
func (p PathValue) String() string {
	return strings.Join(p.labels, ".")
}

// Labels returns a copy of the label sequence.
func (p PathValue) Labels() []string {
	out := make([]string, len(p.labels))
	copy(out, p.labels)
	return out
}

// NLevel returns the number of labels in the path.
func (p PathValue) NLevel() int {
	return len(p.labels)
}

// Equal reports whether two paths have identical label sequences.
func (p PathValue) Equal(q PathValue) bool {
	if len(p.labels) != len(q.labels) {
		return false
	}
	for i := range p.labels {
		if p.labels[i] != q.labels[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is an ancestor of q (or equal to it),
// matching the backend's @> operator: every path is an ancestor of itself.
func (p PathValue) IsAncestorOf(q PathValue) bool {
	if len(p.labels) > len(q.labels) {
		return false
	}
	for i := range p.labels {
		if p.labels[i] != q.labels[i] {
			return false
		}
	}
	return true
}

// IsDescendantOf reports whether p is a descendant of q (or equal to it),
// matching the backend's <@ operator.
func (p PathValue) IsDescendantOf(q PathValue) bool {
	return q.IsAncestorOf(p)
}

// Subtree returns the labels from position start up to but not including
// end, matching subltree(path, start, end). Positions are zero-based.
func (p PathValue) Subtree(start, end int) (PathValue, error) {
	if start < 0 || end > len(p.labels) || start > end {
		return PathValue{}, fmt.Errorf("invalid positions (%d, %d) for %d-level path", start, end, len(p.labels))
	}
	return PathValue{labels: p.labels[start:end]}, nil
}

// Subpath returns the labels starting at offset, matching
// subpath(path, offset[, len]). A negative offset counts from the end of
// the path. The optional second argument limits the length; a negative
// length leaves that many labels off the end.
func (p PathValue) Subpath(offset int, length ...int) (PathValue, error) {
	if len(length) > 1 {
		return PathValue{}, fmt.Errorf("at most one length argument allowed, got %d", len(length))
	}

	n := len(p.labels)
	start := offset
	if start < 0 {
		start = n + start
	}
	if start < 0 || start > n {
		return PathValue{}, fmt.Errorf("offset %d out of range for %d-level path", offset, n)
	}

	end := n
	if len(length) == 1 {
		if length[0] < 0 {
			end = n + length[0]
		} else {
			end = start + length[0]
		}
		if end > n {
			end = n
		}
		if end < start {
			return PathValue{}, fmt.Errorf("length %d out of range for %d-level path", length[0], n)
		}
	}
	return PathValue{labels: p.labels[start:end]}, nil
}

// Index returns the position of the first occurrence of sub within p, or
// -1 if absent, matching index(path, sub[, offset]). The optional offset
// is the position to start searching at; a negative offset counts from
// the end of the path.
func (p PathValue) Index(sub PathValue, offset ...int) int {
	start := 0
	if len(offset) > 0 {
		start = offset[0]
		if start < 0 {
			start = len(p.labels) + start
		}
		if start < 0 {
			start = 0
		}
	}
	for i := start; i+len(sub.labels) <= len(p.labels); i++ {
		if matchAt(p.labels, sub.labels, i) {
			return i
		}
	}
	return -1
}

func matchAt(labels, sub []string, at int) bool {
	for j := range sub {
		if labels[at+j] != sub[j] {
			return false
		}
	}
	return true
}

// LongestCommonAncestor computes the longest common ancestor of the given
// paths, matching lca(paths). The result is always a proper ancestor of
// every input, so lca of a single path is that path's parent. Reports
// false when given no paths, matching the backend's NULL result.
func LongestCommonAncestor(paths ...PathValue) (PathValue, bool) {
	if len(paths) == 0 {
		return PathValue{}, false
	}

	shortest := len(paths[0].labels)
	for _, p := range paths[1:] {
		if len(p.labels) < shortest {
			shortest = len(p.labels)
		}
	}

	// Common prefix across all inputs, capped so the result is a proper
	// ancestor of the shortest input.
	limit := shortest - 1
	if limit < 0 {
		limit = 0
	}
	common := 0
	for common < limit {
		label := paths[0].labels[common]
		same := true
		for _, p := range paths[1:] {
			if p.labels[common] != label {
				same = false
				break
			}
		}
		if !same {
			break
		}
		common++
	}
	return PathValue{labels: paths[0].labels[:common]}, true
}
