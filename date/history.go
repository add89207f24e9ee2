package date

import (
	"iter"
	"slices"
)

// History stores a chronological series of values, each associated with a specific date.
// Dates are unique and the series is always sorted.
type History[T any] struct {
	days   []Date
	values []T
}

func compare(a, b Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// Len returns the number of items in the history.
func (h *History[T]) Len() int { return len(h.days) }

// Append adds a point to the history. An existing value at that date is overwritten.
func (h *History[T]) Append(on Date, v T) *History[T] {
	i, found := slices.BinarySearchFunc(h.days, on, compare)
	if found {
		h.values[i] = v
		return h
	}
	h.days = slices.Insert(h.days, i, on)
	h.values = slices.Insert(h.values, i, v)
	return h
}

// Get returns the value at 'day' and true or zero value and false.
func (h *History[T]) Get(day Date) (T, bool) {
	var zero T
	i, found := slices.BinarySearchFunc(h.days, day, compare)
	if !found {
		return zero, false
	}
	return h.values[i], true
}

// Nearest returns the point whose date is closest to day in absolute number of days.
// When two dates are equally distant the earlier one wins.
func (h *History[T]) Nearest(day Date) (Date, T, bool) {
	var zero T
	if len(h.days) == 0 {
		return Date{}, zero, false
	}
	best, bestDiff := 0, -1
	for i, on := range h.days {
		diff := day.DaysSince(on)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return h.days[best], h.values[best], true
}

// Values returns an iterator over all date/value pairs in the history, in chronological order.
func (h *History[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}
