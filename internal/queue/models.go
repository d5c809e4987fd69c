package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a rendition job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Job represents a rendition job persisted in SQLite.
type Job struct {
	ID               int64
	Token            string
	SourcePath       string
	SourceName       string
	SourceMime       string
	RenditionPath    string
	RenditionName    string
	InstructionsJSON string
	Status           Status
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the job has finished processing.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// InstructionBag parses the stored instruction JSON into the raw map the
// worker's instruction resolver consumes.
func (j Job) InstructionBag() (map[string]any, error) {
	if strings.TrimSpace(j.InstructionsJSON) == "" {
		return nil, nil
	}
	var bag map[string]any
	if err := json.Unmarshal([]byte(j.InstructionsJSON), &bag); err != nil {
		return nil, fmt.Errorf("parse instructions for job %d: %w", j.ID, err)
	}
	return bag, nil
}
