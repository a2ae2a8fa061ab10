package models

import "time"

// PricePoint is one day's closing value of a series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TimeSeries is an ordered sequence of points with non-decreasing dates.
type TimeSeries []PricePoint

// First returns the earliest point. ok is false for an empty series.
func (s TimeSeries) First() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[0], true
}

// Last returns the latest point. ok is false for an empty series.
func (s TimeSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// ValueAt returns the value of the latest point with date <= t.
// ok is false when t precedes the whole series.
func (s TimeSeries) ValueAt(t time.Time) (float64, bool) {
	v := 0.0
	found := false
	for _, p := range s {
		if p.Date.After(t) {
			break
		}
		v = p.Value
		found = true
	}
	return v, found
}

// Sorted reports whether dates are non-decreasing.
func (s TimeSeries) Sorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Date.Before(s[i-1].Date) {
			return false
		}
	}
	return true
}
