package storage

import (
	"fmt"
	"iter"
	"time"
)

// TimestampLayout is the on-disk timestamp format (YYYY-MM-DD HH:MM:SS).
const TimestampLayout = "2006-01-02 15:04:05"

// Turn is one user input paired with the chatbot response.
// Turns are appended in chronological order and never modified.
type Turn struct {
	UserInput string
	Response  string
	Timestamp time.Time
}

// NewTurn stamps a turn, truncated to the second as it will be stored.
func NewTurn(input, response string, at time.Time) Turn {
	return Turn{UserInput: input, Response: response, Timestamp: at.Truncate(time.Second)}
}

func (t Turn) FormattedTimestamp() string {
	return t.Timestamp.Format(TimestampLayout)
}

// Recorder abstracts persistence of conversation turns.
// The log is append-only; ReadAll yields turns lazily in insertion order.
type Recorder interface {
	Append(turn Turn) error
	ReadAll() iter.Seq2[Turn, error]
	Close() error
}

// IOError reports a failed read or write of the conversation log.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("conversation log %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Collect drains a ReadAll sequence, stopping at the first error.
func Collect(seq iter.Seq2[Turn, error]) ([]Turn, error) {
	var out []Turn
	for t, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Last returns up to n most recent turns.
func Last(rec Recorder, n int) ([]Turn, error) {
	all, err := Collect(rec.ReadAll())
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
