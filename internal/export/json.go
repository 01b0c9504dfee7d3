// Package export writes run results as JSON documents and SVG charts.
package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/boxclim/internal/metrics"
)

type ExportData struct {
	Name      string               `json:"name"`
	StartDate float64              `json:"start_date"`
	EndDate   float64              `json:"end_date"`
	Years     []float64            `json:"years"`
	Series    map[string][]float64 `json:"series"`
	Units     map[string]string    `json:"units"`
	Metrics   map[string]float64   `json:"metrics,omitempty"`
}

func newExportData(name string, startDate, endDate float64, result *metrics.Result) ExportData {
	return ExportData{
		Name:      name,
		StartDate: startDate,
		EndDate:   endDate,
		Years:     result.Years,
		Series:    result.Series,
		Units:     result.Units,
		Metrics:   result.Metrics,
	}
}

// WriteJSON encodes result to w. When only is non-empty, just those series
// are written.
func WriteJSON(w io.Writer, name string, startDate, endDate float64, result *metrics.Result, only ...string) error {
	data := newExportData(name, startDate, endDate, result)
	if len(only) > 0 {
		data.Series = make(map[string][]float64, len(only))
		for _, n := range only {
			if s, ok := result.Series[n]; ok {
				data.Series[n] = s
			}
		}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path, name string, startDate, endDate float64, result *metrics.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, name, startDate, endDate, result)
}

func ExportJSONStdout(name string, startDate, endDate float64, result *metrics.Result) error {
	return WriteJSON(os.Stdout, name, startDate, endDate, result)
}
