package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logsplit/internal/classify"
)

func TestNewSourceRecord_Validation(t *testing.T) {
	_, err := NewSourceRecord(0, KindLog, "t", "h")
	assert.Error(t, err)

	_, err = NewSourceRecord(1, "", "t", "h")
	assert.Error(t, err)

	_, err = NewSourceRecord(1, KindLog, "", "h")
	assert.Error(t, err)

	_, err = NewSourceRecord(1, KindLog, "t", "")
	assert.Error(t, err)

	rec, err := NewSourceRecord(1, KindLog, "t", "h")
	require.NoError(t, err)
	assert.Equal(t, KindLog, rec.Kind)
}

func TestNewLogRecord_DerivesFields(t *testing.T) {
	src := SourceRecord{
		ID:          7,
		Kind:        KindLog,
		Title:       "phase4_error_session_20240117_153045",
		Content:     "exception during rollout",
		OriginPath:  "/logs/deploy_runner.log",
		ContentHash: "abc123",
		Priority:    3,
		Status:      "ACTIVE",
	}

	lr, err := NewLogRecord(src)
	require.NoError(t, err)
	assert.Equal(t, int64(7), lr.SourceID)
	assert.Equal(t, classify.SeverityError, lr.Severity)
	assert.Equal(t, "deploy_runner", lr.Component)
	assert.Equal(t, "20240117_153045", lr.SessionToken)
	assert.Equal(t, "PHASE_4", lr.ExecutionPhase)
	assert.Equal(t, "ERROR_LOGS", lr.Category)
	assert.Equal(t, 1, lr.ErrorCount)
}

func TestNewLogRecord_KeepsExistingCategory(t *testing.T) {
	src := SourceRecord{ID: 1, Kind: KindLog, Title: "t", ContentHash: "h", Category: "CUSTOM"}
	lr, err := NewLogRecord(src)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM", lr.Category)
}

func TestNewLogRecord_RejectsMalformed(t *testing.T) {
	_, err := NewLogRecord(SourceRecord{ID: 1, Title: "t"})
	assert.Error(t, err, "missing content hash")

	_, err = NewLogRecord(SourceRecord{ID: 1, ContentHash: "h"})
	assert.Error(t, err, "missing title")

	_, err = NewLogRecord(SourceRecord{Title: "t", ContentHash: "h"})
	assert.Error(t, err, "missing id")
}
