// Package tseries provides a date-indexed series with linear interpolation.
package tseries

import (
	"fmt"
	"sort"

	"github.com/san-kum/boxclim/internal/dynamo"
)

// Series maps dates to values. Dates are kept sorted.
type Series struct {
	dates  []float64
	values []float64
}

func New() *Series {
	return &Series{}
}

func (s *Series) Len() int { return len(s.dates) }

// Set inserts or replaces the value at date.
func (s *Series) Set(date, v float64) {
	i := sort.SearchFloat64s(s.dates, date)
	if i < len(s.dates) && s.dates[i] == date {
		s.values[i] = v
		return
	}
	s.dates = append(s.dates, 0)
	s.values = append(s.values, 0)
	copy(s.dates[i+1:], s.dates[i:])
	copy(s.values[i+1:], s.values[i:])
	s.dates[i] = date
	s.values[i] = v
}

// Get returns the value stored exactly at date.
func (s *Series) Get(date float64) (float64, bool) {
	i := sort.SearchFloat64s(s.dates, date)
	if i < len(s.dates) && s.dates[i] == date {
		return s.values[i], true
	}
	return 0, false
}

// At interpolates linearly between stored dates and holds the end values
// constant outside them.
func (s *Series) At(date float64) (float64, error) {
	n := len(s.dates)
	if n == 0 {
		return 0, fmt.Errorf("%w: empty series", dynamo.ErrInvalidDate)
	}
	if date <= s.dates[0] {
		return s.values[0], nil
	}
	if date >= s.dates[n-1] {
		return s.values[n-1], nil
	}
	i := sort.SearchFloat64s(s.dates, date)
	if s.dates[i] == date {
		return s.values[i], nil
	}
	d0, d1 := s.dates[i-1], s.dates[i]
	w := (date - d0) / (d1 - d0)
	return s.values[i-1]*(1-w) + s.values[i]*w, nil
}

// Truncate drops every entry after date.
func (s *Series) Truncate(after float64) {
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i] > after })
	s.dates = s.dates[:i]
	s.values = s.values[:i]
}

func (s *Series) Dates() []float64 {
	out := make([]float64, len(s.dates))
	copy(out, s.dates)
	return out
}

func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

func (s *Series) Clone() *Series {
	return &Series{dates: s.Dates(), values: s.Values()}
}
