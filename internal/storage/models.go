package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Run groups the episodes of one collection invocation.
type Run struct {
	ID        string
	Speaker   string
	Policy    string
	Noise     float64
	Episodes  int
	StartedAt time.Time
}

// Episode is one stored episode record.
type Episode struct {
	ID           string
	RunID        string
	Speaker      string
	Goal         string
	Noise        float64
	MessagesJSON string // message array stored as text
	ChatLength   int
	Success      bool
	CreatedAt    time.Time
}

// Metric is one aggregated row of collection statistics.
type Metric struct {
	Speaker        string
	Noise          float64
	Episodes       int
	SuccessRate    float64
	MeanChatLength float64
}
