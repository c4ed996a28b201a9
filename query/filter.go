package query

import (
	"strings"
	"time"
)

// Predicate reports whether a record passes one filter.
type Predicate[T any] func(T) bool

// Pipeline applies predicates in order; a record matches when every
// predicate passes. The order never changes which records match, only how
// early a non-matching record is rejected.
type Pipeline[T any] []Predicate[T]

// Matches reports whether rec passes every predicate.
func (p Pipeline[T]) Matches(rec T) bool {
	for _, pred := range p {
		if !pred(rec) {
			return false
		}
	}
	return true
}

// TextEquals matches records whose field equals want, ignoring case. An
// empty want leaves the predicate inactive, so unset filters pass
// everything.
func TextEquals[T any](field func(T) string, want string) Predicate[T] {
	if want == "" {
		return func(T) bool { return true }
	}
	return func(rec T) bool { return strings.EqualFold(field(rec), want) }
}

// DateBetween matches records whose ISO date falls in the inclusive
// [from, to] range; empty bounds are open. While any bound is active,
// records whose date does not parse are excluded rather than guessed at.
func DateBetween[T any](field func(T) string, from, to string) Predicate[T] {
	if from == "" && to == "" {
		return func(T) bool { return true }
	}
	return func(rec T) bool {
		d := field(rec)
		if _, err := time.Parse(isoDate, d); err != nil {
			return false
		}
		if from != "" && d < from {
			return false
		}
		if to != "" && d > to {
			return false
		}
		return true
	}
}

// FloatBetween matches records whose value lies in the inclusive numeric
// range; nil bounds are open.
func FloatBetween[T any](field func(T) float64, min, max *float64) Predicate[T] {
	if min == nil && max == nil {
		return func(T) bool { return true }
	}
	return func(rec T) bool {
		v := field(rec)
		if min != nil && v < *min {
			return false
		}
		if max != nil && v > *max {
			return false
		}
		return true
	}
}

// IntBetween is FloatBetween for integer fields.
func IntBetween[T any](field func(T) int, min, max *int) Predicate[T] {
	if min == nil && max == nil {
		return func(T) bool { return true }
	}
	return func(rec T) bool {
		v := field(rec)
		if min != nil && v < *min {
			return false
		}
		if max != nil && v > *max {
			return false
		}
		return true
	}
}
