package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Header is the mandatory first row of the CSV log.
var Header = []string{"User Input", "Chatbot Response", "Timestamp"}

// CSVRecorder appends turns to a comma-separated UTF-8 file with a single
// header row.
type CSVRecorder struct {
	path string
	mu   sync.Mutex
}

func NewCSVRecorder(path string) (*CSVRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &IOError{Op: "init", Path: path, Err: fmt.Errorf("ensure log dir: %w", err)}
	}
	return &CSVRecorder{path: path}, nil
}

// EnsureHeader creates the log with its header row if it is absent or empty.
func (r *CSVRecorder) EnsureHeader() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.openAppend()
	if err != nil {
		return err
	}
	return r.closeFile(f)
}

func (r *CSVRecorder) Append(turn Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.openAppend()
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{turn.UserInput, turn.Response, turn.FormattedTimestamp()}); err != nil {
		_ = f.Close()
		return &IOError{Op: "append", Path: r.path, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return &IOError{Op: "append", Path: r.path, Err: err}
	}
	return r.closeFile(f)
}

// openAppend opens the log for appending and writes the header into an empty
// file.
func (r *CSVRecorder) openAppend() (*os.File, error) {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &IOError{Op: "open", Path: r.path, Err: err}
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &IOError{Op: "stat", Path: r.path, Err: err}
	}
	if st.Size() == 0 {
		w := csv.NewWriter(f)
		_ = w.Write(Header)
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, &IOError{Op: "write header", Path: r.path, Err: err}
		}
	}
	return f, nil
}

func (r *CSVRecorder) closeFile(f *os.File) error {
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: r.path, Err: err}
	}
	return nil
}

// ReadAll streams the logged turns, skipping the header. A missing file is an
// empty log. Rows appended after the read starts are not seen.
func (r *CSVRecorder) ReadAll() iter.Seq2[Turn, error] {
	return func(yield func(Turn, error) bool) {
		f, size, err := r.openSnapshot()
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			yield(Turn{}, err)
			return
		}
		defer f.Close()

		cr := csv.NewReader(io.LimitReader(f, size))
		cr.FieldsPerRecord = len(Header)
		if _, err := cr.Read(); err != nil {
			if err != io.EOF {
				yield(Turn{}, &IOError{Op: "read header", Path: r.path, Err: err})
			}
			return
		}
		for {
			rec, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Turn{}, &IOError{Op: "read", Path: r.path, Err: err})
				return
			}
			ts, err := time.ParseInLocation(TimestampLayout, rec[2], time.Local)
			if err != nil {
				yield(Turn{}, &IOError{Op: "parse timestamp", Path: r.path, Err: err})
				return
			}
			if !yield(Turn{UserInput: rec[0], Response: rec[1], Timestamp: ts}, nil) {
				return
			}
		}
	}
}

// openSnapshot opens the log and records its size while no append is in
// flight, so readers never see a partially written row.
func (r *CSVRecorder) openSnapshot() (*os.File, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, err
	}
	if err != nil {
		return nil, 0, &IOError{Op: "open", Path: r.path, Err: err}
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, &IOError{Op: "stat", Path: r.path, Err: err}
	}
	return f, st.Size(), nil
}

func (r *CSVRecorder) Close() error { return nil }
