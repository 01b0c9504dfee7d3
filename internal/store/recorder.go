package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tebeka/atexit"

	"github.com/san-kum/boxclim/internal/core"
)

// Recorder is a core observer that writes every run year to the database.
// Rows are buffered and written in batches.
type Recorder struct {
	db        *DB
	runID     string
	log       *slog.Logger
	batchSize int
	date      float64
	pending   []Row
	closed    bool
}

// NewRecorder opens a new run named name and takes ownership of db. Close
// flushes the buffer and closes db; it also runs when the process exits
// through atexit.
func NewRecorder(ctx context.Context, db *DB, name string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	id, err := db.NewRun(ctx, name)
	if err != nil {
		return nil, err
	}
	r := &Recorder{db: db, runID: id, log: logger, batchSize: 5000}
	atexit.Register(func() {
		if err := r.Close(); err != nil {
			r.log.Error("close sqlite recorder", "err", err)
		}
	})
	return r, nil
}

func (r *Recorder) RunID() string { return r.runID }

func (r *Recorder) ShouldVisit(inSpinup bool, date float64) bool {
	r.date = date
	return !inSpinup
}

func (r *Recorder) Visit(c core.Component) error {
	rep, ok := c.(core.Reporter)
	if !ok {
		return nil
	}
	for _, name := range rep.Outputs() {
		v, err := c.GetData(name, core.Now())
		if err != nil {
			return err
		}
		r.pending = append(r.pending, Row{Year: r.date, Variable: name, Value: v.V, Unit: string(v.Unit)})
	}
	if len(r.pending) >= r.batchSize {
		return r.Flush()
	}
	return nil
}

// Flush writes the buffered rows.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.db.Insert(context.Background(), r.runID, r.pending); err != nil {
		return err
	}
	r.log.Debug("flushed outputs", "run", r.runID, "rows", len(r.pending))
	r.pending = r.pending[:0]
	return nil
}

// Reset discards buffered and stored rows after date.
func (r *Recorder) Reset(date float64) error {
	kept := r.pending[:0]
	for _, row := range r.pending {
		if row.Year <= date {
			kept = append(kept, row)
		}
	}
	r.pending = kept
	if err := r.db.Truncate(context.Background(), r.runID, date); err != nil {
		return fmt.Errorf("truncate run %s: %w", r.runID, err)
	}
	return nil
}

// Close flushes the buffered rows and closes the database. Later calls do
// nothing.
func (r *Recorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return errors.Join(r.Flush(), r.db.Close())
}
