package tseries

import (
	"math"
	"testing"
)

func TestSeriesInterpolation(t *testing.T) {
	s := New()
	s.Set(1900, 1.0)
	s.Set(1800, 0.0)
	s.Set(2000, 5.0)

	tests := []struct {
		date float64
		want float64
	}{
		{1700, 0.0},
		{1800, 0.0},
		{1850, 0.5},
		{1900, 1.0},
		{1950, 3.0},
		{2100, 5.0},
	}

	for _, tt := range tests {
		got, err := s.At(tt.date)
		if err != nil {
			t.Fatalf("At(%v): %v", tt.date, err)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("At(%v) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestSeriesSetReplaces(t *testing.T) {
	s := New()
	s.Set(1900, 1.0)
	s.Set(1900, 2.0)
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
	if v, ok := s.Get(1900); !ok || v != 2.0 {
		t.Errorf("Get(1900) = %v, %v", v, ok)
	}
	if _, ok := s.Get(1901); ok {
		t.Error("Get(1901) should miss")
	}
}

func TestSeriesTruncate(t *testing.T) {
	s := New()
	for y := 1800.0; y <= 1810; y++ {
		s.Set(y, y)
	}
	s.Truncate(1805)
	if s.Len() != 6 {
		t.Errorf("expected 6 entries after truncate, got %d", s.Len())
	}
	if d := s.Dates(); d[len(d)-1] != 1805 {
		t.Errorf("last date = %v", d[len(d)-1])
	}
}

func TestSeriesEmpty(t *testing.T) {
	if _, err := New().At(1900); err == nil {
		t.Error("expected error from empty series")
	}
}
