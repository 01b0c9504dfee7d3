package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/san-kum/boxclim/internal/metrics"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	StartDate float64            `json:"start_date"`
	EndDate   float64            `json:"end_date"`
	Spinup    bool               `json:"spinup"`
	Years     int                `json:"years"`
	Units     map[string]string  `json:"units"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes the run to <base>/<name>_<xid>/ and returns the run ID.
func (s *Store) Save(name string, startDate, endDate float64, spinup bool, result *metrics.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", name, xid.New().String())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Timestamp: time.Now(),
		StartDate: startDate,
		EndDate:   endDate,
		Spinup:    spinup,
		Years:     len(result.Years),
		Units:     result.Units,
		Metrics:   result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "outputs.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteCSV writes one row per year with a column per series.
func WriteCSV(out io.Writer, result *metrics.Result) error {
	w := csv.NewWriter(out)
	names := result.Names()
	if err := w.Write(append([]string{"year"}, names...)); err != nil {
		return err
	}
	for i, year := range result.Years {
		row := []string{strconv.FormatFloat(year, 'f', -1, 64)}
		for _, n := range names {
			val := ""
			if s := result.Series[n]; i < len(s) {
				val = strconv.FormatFloat(s[i], 'g', 10, 64)
			}
			row = append(row, val)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadOutputs reads outputs.csv back into a Result.
func (s *Store) LoadOutputs(runID string) (*metrics.Result, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "outputs.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	result := metrics.NewResult()
	if meta, err := s.Load(runID); err == nil {
		result.Metrics = meta.Metrics
		if meta.Units != nil {
			result.Units = meta.Units
		}
	}
	if len(records) == 0 {
		return result, nil
	}

	header := records[0]
	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		year, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse year %q: %w", rec[0], err)
		}
		result.Years = append(result.Years, year)
		for j := 1; j < len(header) && j < len(rec); j++ {
			if rec[j] == "" {
				result.Series[header[j]] = append(result.Series[header[j]], math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s at %g: %w", header[j], year, err)
			}
			result.Series[header[j]] = append(result.Series[header[j]], v)
		}
	}
	return result, nil
}
