package canonicalize

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// Fingerprint collapses cosmetically different target descriptors onto
// one coordination key. The normalization is deliberately aggressive so
// that two actors can never hold claims on the "same" target under
// different spellings.
//
// Algorithm, in order:
//  1. Unicode NFKC normalization, then full case folding.
//  2. Strip a leading http:// or https:// scheme.
//  3. Collapse all whitespace runs to nothing (targets carry no
//     meaningful interior whitespace).
//  4. Sort query parameters byte-lexicographically, keeping duplicates.
//  5. Strip trailing slashes from the path.
func Fingerprint(target string) string {
	s := foldCaser.String(norm.NFKC.String(strings.TrimSpace(target)))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.Join(strings.Fields(s), "")

	path, query, hasQuery := strings.Cut(s, "?")
	path = strings.TrimRight(path, "/")
	if !hasQuery || query == "" {
		return path
	}

	params := strings.Split(query, "&")
	sort.Strings(params)
	return path + "?" + strings.Join(params, "&")
}

// NormalizeSignal canonicalizes an extracted evidence signal before
// cross-source comparison: NFKC, case fold, whitespace runs collapsed to
// a single space.
func NormalizeSignal(signal string) string {
	s := foldCaser.String(norm.NFKC.String(signal))
	return strings.Join(strings.Fields(s), " ")
}
