package pathval

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PathQuery is a parsed lquery pattern, e.g. "science.*{1,2}.!astronomy|physics".
//
// The in-memory matcher supports the core of the lquery grammar: plain
// labels, "|" alternation, "!" group negation, the "@" case-fold
// modifier, and "*" stars with optional {n}, {n,} and {n,m} quantifiers.
// The "%" word-match and "*" prefix-match label modifiers are not
// implemented; patterns using them still round-trip through String for
// translation, they just cannot be evaluated in memory.
type PathQuery struct {
	src   string
	items []queryItem
}

// queryItem is one dot-separated element of an lquery.
type queryItem struct {
	star bool
	min  int
	max  int // -1 = unbounded

	negated bool
	alts    []queryLabel // non-star items only
}

type queryLabel struct {
	label    string
	caseFold bool
}

// ParseQuery validates an lquery pattern string.
func ParseQuery(s string) (PathQuery, error) {
	s = norm.NFC.String(s)
	if s == "" {
		return PathQuery{}, fmt.Errorf("empty lquery")
	}

	parts := strings.Split(s, ".")
	items := make([]queryItem, 0, len(parts))
	for i, part := range parts {
		item, err := parseQueryItem(part)
		if err != nil {
			return PathQuery{}, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return PathQuery{src: s, items: items}, nil
}

// MustParseQuery is ParseQuery that panics on invalid input.
func MustParseQuery(s string) PathQuery {
	q, err := ParseQuery(s)
	if err != nil {
		panic(fmt.Sprintf("pathval: MustParseQuery(%q): %v", s, err))
	}
	return q
}

func parseQueryItem(part string) (queryItem, error) {
	if part == "" {
		return queryItem{}, fmt.Errorf("empty item")
	}

	if strings.HasPrefix(part, "*") {
		return parseStarItem(part)
	}

	item := queryItem{min: 1, max: 1}
	if strings.HasPrefix(part, "!") {
		item.negated = true
		part = part[1:]
		if part == "" {
			return queryItem{}, fmt.Errorf("bare negation")
		}
	}
	for _, alt := range strings.Split(part, "|") {
		ql := queryLabel{label: alt}
		if strings.HasSuffix(ql.label, "@") {
			ql.caseFold = true
			ql.label = strings.TrimSuffix(ql.label, "@")
		}
		if err := checkLabel(ql.label); err != nil {
			return queryItem{}, err
		}
		item.alts = append(item.alts, ql)
	}
	return item, nil
}

// parseStarItem parses "*", "*{n}", "*{n,}", or "*{n,m}".
func parseStarItem(part string) (queryItem, error) {
	item := queryItem{star: true, min: 0, max: -1}
	rest := part[1:]
	if rest == "" {
		return item, nil
	}
	if !strings.HasPrefix(rest, "{") || !strings.HasSuffix(rest, "}") {
		return queryItem{}, fmt.Errorf("malformed star quantifier %q", part)
	}
	body := rest[1 : len(rest)-1]
	lo, hi, found := strings.Cut(body, ",")

	n, err := strconv.Atoi(lo)
	if err != nil || n < 0 {
		return queryItem{}, fmt.Errorf("malformed star quantifier %q", part)
	}
	item.min = n
	if !found {
		item.max = n
		return item, nil
	}
	if hi == "" {
		return item, nil // {n,} stays unbounded
	}
	m, err := strconv.Atoi(hi)
	if err != nil || m < n {
		return queryItem{}, fmt.Errorf("malformed star quantifier %q", part)
	}
	item.max = m
	return item, nil
}

// String returns the original pattern text.
func (q PathQuery) String() string {
	return q.src
}

// Match reports whether the path's label sequence satisfies the pattern.
func (q PathQuery) Match(p PathValue) bool {
	return matchItems(q.items, p.labels)
}

// matchItems matches pattern items against labels with backtracking over
// star ranges. Depth is bounded by the item count so there is no risk of
// runaway recursion on hostile patterns.
func matchItems(items []queryItem, labels []string) bool {
	if len(items) == 0 {
		return len(labels) == 0
	}

	item := items[0]
	if !item.star {
		if len(labels) == 0 || !item.matchLabel(labels[0]) {
			return false
		}
		return matchItems(items[1:], labels[1:])
	}

	max := item.max
	if max < 0 || max > len(labels) {
		max = len(labels)
	}
	for n := item.min; n <= max; n++ {
		if matchItems(items[1:], labels[n:]) {
			return true
		}
	}
	return false
}

func (item queryItem) matchLabel(label string) bool {
	matched := false
	for _, alt := range item.alts {
		if alt.caseFold {
			if strings.EqualFold(alt.label, label) {
				matched = true
				break
			}
		} else if alt.label == label {
			matched = true
			break
		}
	}
	if item.negated {
		return !matched
	}
	return matched
}

// PathTextQuery is an ltxtquery full-text pattern, e.g. "Europe & Russia@*".
//
// It is opaque to this package beyond a light syntax check: matching
// ltxtquery semantics is the backend's job, and translation only ever
// needs the pattern text.
type PathTextQuery struct {
	src string
}

// ParseTextQuery performs a light syntax check on an ltxtquery pattern:
// non-empty, balanced parentheses, and only word/operator characters.
func ParseTextQuery(s string) (PathTextQuery, error) {
	s = norm.NFC.String(s)
	if strings.TrimSpace(s) == "" {
		return PathTextQuery{}, fmt.Errorf("empty ltxtquery")
	}
	depth := 0
	for _, r := range s {
		switch {
		case isLabelRune(r):
		case r == '&' || r == '|' || r == '!' || r == ' ':
		case r == '@' || r == '*' || r == '%':
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return PathTextQuery{}, fmt.Errorf("unbalanced parentheses")
			}
		default:
			return PathTextQuery{}, fmt.Errorf("invalid character %q", r)
		}
	}
	if depth != 0 {
		return PathTextQuery{}, fmt.Errorf("unbalanced parentheses")
	}
	return PathTextQuery{src: s}, nil
}

// MustParseTextQuery is ParseTextQuery that panics on invalid input.
func MustParseTextQuery(s string) PathTextQuery {
	q, err := ParseTextQuery(s)
	if err != nil {
		panic(fmt.Sprintf("pathval: MustParseTextQuery(%q): %v", s, err))
	}
	return q
}

// String returns the original pattern text.
func (q PathTextQuery) String() string {
	return q.src
}
