package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func TestWriteReport_JSONShape(t *testing.T) {
	report := &Report{
		RunID:         "0190a1b2-0000-7000-8000-000000000000",
		StartedAt:     "2024-01-15T09:30:00Z",
		FinishedAt:    "2024-01-15T09:30:02Z",
		State:         StateReported,
		SchemaCreated: true,
		Transfer: &TransferResult{
			RecordsRead:     3,
			RecordsInserted: 2,
			RecordsFailed:   1,
			Errors:          []RecordError{{SourceID: 7, Error: "log record: title is required"}},
			TransferredIDs:  []int64{5, 6},
		},
		Validation: &ValidationResult{
			SourceLogCount:   3,
			TransferredCount: 2,
			OverrideReason:   "known bad row",
		},
		Prune:          &PruneResult{RowsDeleted: 2, RemovalSuccess: true},
		Access:         &AccessResult{ArtifactPath: "unifiedaccess/facade.go", Generated: true},
		LogsExtracted:  2,
		LogsRemoved:    2,
		DurationsMS:    map[string]int64{"transfer": 12},
		OverallSuccess: true,
	}

	dir := t.TempDir()
	when := time.Date(2024, 1, 15, 9, 30, 2, 0, time.UTC)
	path, err := WriteReport(report, dir, when)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "extraction_report_20240115_093002.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	v, err := fastjson.ParseBytes(data)
	require.NoError(t, err)

	assert.Equal(t, report.RunID, string(v.GetStringBytes("run_id")))
	assert.Equal(t, "REPORTED", string(v.GetStringBytes("state")))
	assert.True(t, v.GetBool("overall_success"))
	assert.Equal(t, 2, v.GetInt("logs_extracted"))
	assert.Equal(t, 2, v.GetInt("logs_removed"))

	assert.Equal(t, 3, v.GetInt("transfer", "records_read"))
	assert.Equal(t, int64(7), v.GetInt64("transfer", "errors", "0", "source_id"))
	assert.Equal(t, int64(5), v.GetInt64("transfer", "transferred_ids", "0"))

	assert.Equal(t, "known bad row", string(v.GetStringBytes("validation", "override_reason")))
	assert.Equal(t, 2, v.GetInt("prune", "rows_deleted"))
	assert.True(t, v.GetBool("access", "generated"))
	assert.Equal(t, 12, v.GetInt("phase_durations_ms", "transfer"))

	// Fields marked omitempty stay out of a clean report.
	assert.False(t, v.Exists("error"))
	assert.False(t, v.Exists("analysis"))
	assert.False(t, v.Exists("backup"))
}

func TestWriteReport_FailureFieldsPresent(t *testing.T) {
	report := &Report{
		RunID:       "0190a1b2-0000-7000-8000-000000000001",
		State:       StateFailed,
		DurationsMS: map[string]int64{},
		Error:       "integrity mismatch: source has 3 LOG records, 2 transferred",
	}

	path, err := WriteReport(report, t.TempDir(), time.Now())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	v, err := fastjson.ParseBytes(data)
	require.NoError(t, err)

	assert.Equal(t, "FAILED", string(v.GetStringBytes("state")))
	assert.False(t, v.GetBool("overall_success"))
	assert.Contains(t, string(v.GetStringBytes("error")), "integrity mismatch")
}
