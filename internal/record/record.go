// Package record defines the typed records exchanged between pipeline phases.
//
// The source store owns SourceRecord rows; the target store owns LogRecord and
// Category rows. Constructors validate required fields so a malformed record is
// rejected at creation time rather than surfacing later as a constraint error.
package record

import (
	"errors"
	"fmt"

	"github.com/roach88/logsplit/internal/classify"
)

// KindLog is the kind tag identifying records eligible for extraction.
const KindLog = "LOG"

// SourceRecord is a row of the source store's documents table.
type SourceRecord struct {
	ID             int64
	Kind           string
	Title          string
	Content        string
	OriginPath     string
	LastUpdated    string
	Version        int
	ContentHash    string
	ComplianceFlag bool
	IndexedFlag    bool
	Category       string // nullable in the store; empty means unset
	Priority       int
	Status         string
}

// LogRecord is a row of the target store's log_records table: the source
// columns plus the classifier-derived fields. ByteSize and CompressionRatio
// are recomputed by an insert trigger and are informational here.
type LogRecord struct {
	ID               int64
	SourceID         int64
	Title            string
	Content          string
	OriginPath       string
	LastUpdated      string
	Version          int
	ContentHash      string
	Category         string
	Priority         int
	Status           string
	Severity         classify.Severity
	Component        string
	SessionToken     string
	ExecutionPhase   string
	ErrorCount       int
	WarningCount     int
	ByteSize         int64
	CompressionRatio float64
	ArchivedAt       string // empty when not archived
	RetentionPolicy  string
}

// Category is a row of the target store's log_categories table.
type Category struct {
	ID                 int64
	Name               string
	Description        string
	RetentionDays      int
	CompressionEnabled bool
	ArchivalEnabled    bool
}

// NewSourceRecord validates the fields an extraction run relies on.
func NewSourceRecord(id int64, kind, title, contentHash string) (SourceRecord, error) {
	if id <= 0 {
		return SourceRecord{}, fmt.Errorf("source record: invalid id %d", id)
	}
	if kind == "" {
		return SourceRecord{}, errors.New("source record: kind is required")
	}
	if title == "" {
		return SourceRecord{}, errors.New("source record: title is required")
	}
	if contentHash == "" {
		return SourceRecord{}, errors.New("source record: content_hash is required")
	}
	return SourceRecord{ID: id, Kind: kind, Title: title, ContentHash: contentHash}, nil
}

// NewLogRecord builds the target-store record for a source record, running the
// classifier over its title, content, and origin path.
func NewLogRecord(src SourceRecord) (LogRecord, error) {
	if src.ID <= 0 {
		return LogRecord{}, fmt.Errorf("log record: invalid source id %d", src.ID)
	}
	if src.Title == "" {
		return LogRecord{}, errors.New("log record: title is required")
	}
	if src.ContentHash == "" {
		return LogRecord{}, errors.New("log record: content_hash is required")
	}

	d := classify.Classify(src.Title, src.Content, src.OriginPath)
	category := src.Category
	if category == "" {
		category = d.Category
	}

	return LogRecord{
		SourceID:       src.ID,
		Title:          src.Title,
		Content:        src.Content,
		OriginPath:     src.OriginPath,
		LastUpdated:    src.LastUpdated,
		Version:        src.Version,
		ContentHash:    src.ContentHash,
		Category:       category,
		Priority:       src.Priority,
		Status:         src.Status,
		Severity:       d.Severity,
		Component:      d.Component,
		SessionToken:   d.SessionToken,
		ExecutionPhase: d.ExecutionPhase,
		ErrorCount:     d.ErrorCount,
		WarningCount:   d.WarningCount,
	}, nil
}
