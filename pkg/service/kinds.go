package service

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
)

// maxSuggestionDistance is the largest edit distance at which a kind is
// still offered as a spelling suggestion.
const maxSuggestionDistance = 3

// resolveKind maps a user-supplied resource type to an indexed kind.
// Matching is case-insensitive and accepts plural forms ("pods" for Pod).
// Unknown types fail with the closest indexed kind as a suggestion.
func resolveKind(resourceType string, kinds []string) (string, error) {
	if resourceType == "" {
		return "", glerrors.New(glerrors.ErrCodeInvalidRequest, "resource type is empty")
	}

	want := strings.ToLower(resourceType)
	for _, kind := range kinds {
		k := strings.ToLower(kind)
		if want == k || want == k+"s" || want == k+"es" {
			return kind, nil
		}
	}

	if suggestion := closestKind(want, kinds); suggestion != "" {
		return "", glerrors.Newf(glerrors.ErrCodeNotFound,
			"no resources of type %q in capture, did you mean %q?", resourceType, suggestion)
	}
	return "", glerrors.Newf(glerrors.ErrCodeNotFound,
		"no resources of type %q in capture", resourceType)
}

// closestKind returns the indexed kind nearest to want by edit distance,
// or empty when nothing is close enough to be a plausible typo.
func closestKind(want string, kinds []string) string {
	sorted := make([]string, len(kinds))
	copy(sorted, kinds)
	sort.Strings(sorted)

	best := ""
	bestDistance := maxSuggestionDistance + 1
	for _, kind := range sorted {
		d := levenshtein.ComputeDistance(want, strings.ToLower(kind))
		if d < bestDistance {
			best = kind
			bestDistance = d
		}
	}
	return best
}
