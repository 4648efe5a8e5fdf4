package model

import "time"

// Run is one executed folder query, as kept in the history.
type Run struct {
	ID      string `json:"id" db:"id"`
	Account string `json:"account" db:"account"`
	Folder  string `json:"folder" db:"folder"`

	// Strategy is the remote operation the query resolved to
	// ("none", "search", "sorted-search" or "sort").
	Strategy  string `json:"strategy" db:"strategy"`
	Predicate string `json:"predicate" db:"predicate"`
	SortKeys  string `json:"sort_keys" db:"sort_keys"`
	Prefetch  string `json:"prefetch" db:"prefetch"`

	Matches    int  `json:"matches" db:"matches"`
	MarkedRead bool `json:"marked_read" db:"marked_read"`

	StartedAt  time.Time `json:"started_at" db:"started_at"`
	DurationMS int64     `json:"duration_ms" db:"duration_ms"`

	// Error is empty for successful runs.
	Error string `json:"error" db:"error"`
}

func (r Run) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

func (r Run) Failed() bool {
	return r.Error != ""
}
