package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"intent-chatter/internal/chat"
	"intent-chatter/internal/storage"
)

// DailyStats summarises one day of conversation turns.
type DailyStats struct {
	Date       string         `json:"date"`
	TotalTurns int            `json:"total_turns"`
	Farewells  int            `json:"farewells"`
	ByTag      map[string]int `json:"by_tag"`
	// Unclassified counts turns the classifier rejected.
	Unclassified int `json:"unclassified"`
}

// ClassifyFunc maps a logged input back to an intent tag.
type ClassifyFunc func(text string) (string, error)

// AnalyzeDailyTurns counts the turns logged on targetDate. The log keeps no
// tag column, so inputs are re-classified with classify (may be nil).
func AnalyzeDailyTurns(turns []storage.Turn, targetDate time.Time, classify ClassifyFunc) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:  startOfDay.Format("2006-01-02"),
		ByTag: make(map[string]int),
	}
	for _, turn := range turns {
		if turn.Timestamp.Before(startOfDay) || !turn.Timestamp.Before(endOfDay) {
			continue
		}
		stats.TotalTurns++
		if chat.IsFarewell(turn.UserInput) {
			stats.Farewells++
		}
		if classify == nil {
			continue
		}
		tag, err := classify(turn.UserInput)
		if err != nil {
			stats.Unclassified++
			continue
		}
		stats.ByTag[tag]++
	}
	return stats
}

// GenerateReportSummary renders the stats as plain text.
func (ds *DailyStats) GenerateReportSummary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Chatbot activity for %s:\n\n", ds.Date)
	fmt.Fprintf(&sb, "- Turns: %d\n", ds.TotalTurns)
	fmt.Fprintf(&sb, "- Conversations ended: %d\n", ds.Farewells)
	if ds.Unclassified > 0 {
		fmt.Fprintf(&sb, "- Unclassified: %d\n", ds.Unclassified)
	}

	if len(ds.ByTag) > 0 {
		tags := make([]string, 0, len(ds.ByTag))
		for tag := range ds.ByTag {
			tags = append(tags, tag)
		}
		// most frequent first
		sort.Slice(tags, func(i, j int) bool {
			if ds.ByTag[tags[i]] != ds.ByTag[tags[j]] {
				return ds.ByTag[tags[i]] > ds.ByTag[tags[j]]
			}
			return tags[i] < tags[j]
		})
		sb.WriteString("\nIntents:\n")
		for _, tag := range tags {
			fmt.Fprintf(&sb, "- %s: %d\n", tag, ds.ByTag[tag])
		}
	}
	return sb.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromEngine replays the engine's log and analyzes targetDate.
func FromEngine(e *chat.Engine, targetDate time.Time) (*DailyStats, error) {
	turns, err := storage.Collect(e.History())
	if err != nil {
		return nil, fmt.Errorf("read conversation log: %w", err)
	}
	return AnalyzeDailyTurns(turns, targetDate, e.Classify), nil
}
