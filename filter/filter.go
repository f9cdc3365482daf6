package filter

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Matcher reports whether a record passes one condition.
type Matcher[T any] func(T) bool

// Predicates are keyed by the query parameter that produced them. A nil
// matcher always matches.
type Predicates[T any] map[string]Matcher[T]

// Matches is the AND of every non-nil matcher.
func Matches[T any](rec T, preds Predicates[T]) bool {
	for _, m := range preds {
		if m != nil && !m(rec) {
			return false
		}
	}
	return true
}

// Apply keeps the rows that match, preserving order.
func Apply[T any](rows []T, preds Predicates[T]) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if Matches(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

// Fold lowercases and strips accents, so "Café" and "cafe" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// Contains matches when the field holds needle, ignoring case and accents.
func Contains[T any](needle string, field func(T) string) Matcher[T] {
	needle = Fold(strings.TrimSpace(needle))
	if needle == "" {
		return nil
	}
	return func(rec T) bool {
		return strings.Contains(Fold(field(rec)), needle)
	}
}

// Equals matches the field exactly after trimming the wanted value.
func Equals[T any](want string, field func(T) string) Matcher[T] {
	want = strings.TrimSpace(want)
	if want == "" {
		return nil
	}
	return func(rec T) bool {
		return field(rec) == want
	}
}

// OneOf matches when the field equals any of the wanted values.
func OneOf[T any](wanted []string, field func(T) string) Matcher[T] {
	set := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		if w = strings.TrimSpace(w); w != "" {
			set[w] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return func(rec T) bool {
		_, ok := set[field(rec)]
		return ok
	}
}

// AnyContains matches when at least one of the values returned by field
// contains needle. Used for set-valued columns such as branches.
func AnyContains[T any](needle string, field func(T) []string) Matcher[T] {
	needle = Fold(strings.TrimSpace(needle))
	if needle == "" {
		return nil
	}
	return func(rec T) bool {
		for _, v := range field(rec) {
			if strings.Contains(Fold(v), needle) {
				return true
			}
		}
		return false
	}
}

// DateRange matches timestamps within [from, to]. Either bound may be zero.
// A zero timestamp never matches a bounded range.
func DateRange[T any](from, to time.Time, field func(T) time.Time) Matcher[T] {
	if from.IsZero() && to.IsZero() {
		return nil
	}
	return func(rec T) bool {
		ts := field(rec)
		if ts.IsZero() {
			return false
		}
		if !from.IsZero() && ts.Before(from) {
			return false
		}
		if !to.IsZero() && ts.After(to) {
			return false
		}
		return true
	}
}

// Bool matches a boolean field against a pointer; nil means no filter.
func Bool[T any](want *bool, field func(T) bool) Matcher[T] {
	if want == nil {
		return nil
	}
	w := *want
	return func(rec T) bool {
		return field(rec) == w
	}
}
