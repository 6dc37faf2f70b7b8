package pipeline

import "github.com/roach88/logsplit/internal/docstore"

// State is the orchestrator's position in the phase sequence.
type State string

const (
	StateAnalyzing        State = "ANALYZING"
	StateSchemaReady      State = "SCHEMA_READY"
	StateTransferring     State = "TRANSFERRING"
	StateValidating       State = "VALIDATING"
	StatePruning          State = "PRUNING"
	StateAccessLayerReady State = "ACCESS_LAYER_READY"
	StateReported         State = "REPORTED"
	StateFailed           State = "FAILED"
)

// ExtractionImpact estimates what a full extraction run would change.
type ExtractionImpact struct {
	RecordsRemoved   int64   `json:"records_removed"`
	RecordsRemaining int64   `json:"records_remaining"`
	BytesFreed       int64   `json:"bytes_freed"`
	BytesRemaining   int64   `json:"bytes_remaining"`
	ReductionPct     float64 `json:"reduction_pct"`
}

// CompressionEstimate reports gzip sampling over the largest LOG contents.
type CompressionEstimate struct {
	SampledRecords  int     `json:"sampled_records"`
	SampledBytes    int64   `json:"sampled_bytes"`
	CompressedBytes int64   `json:"compressed_bytes"`
	Ratio           float64 `json:"ratio"`
	ProjectedBytes  int64   `json:"projected_bytes"`
}

// AnalysisReport is the read-only output of the analyzer phase.
type AnalysisReport struct {
	TotalDocuments int64                            `json:"total_documents"`
	LogCount       int64                            `json:"log_count"`
	LogBytes       int64                            `json:"log_bytes"`
	TopLargest     []docstore.LargestRow            `json:"top_largest"`
	Categories     map[string]docstore.CategoryStat `json:"categories"`
	Impact         ExtractionImpact                 `json:"extraction_impact"`
	Compression    CompressionEstimate              `json:"compression_estimate"`
}

// BackupResult describes the safety copy taken before any mutation.
type BackupResult struct {
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	Digest   string `json:"digest"`
	Verified bool   `json:"verified"`
}

// RecordError is one per-record transfer failure. Collected, never raised.
type RecordError struct {
	SourceID int64  `json:"source_id"`
	Error    string `json:"error"`
}

// TransferResult is the transfer engine's output, including the exact source
// IDs confirmed present in the target - the only rows the pruner is allowed to
// delete. RecordsAlreadyPresent counts rows an earlier run migrated; their IDs
// appear in TransferredIDs alongside this run's inserts.
type TransferResult struct {
	RecordsRead           int64         `json:"records_read"`
	RecordsInserted       int64         `json:"records_inserted"`
	RecordsAlreadyPresent int64         `json:"records_already_present"`
	RecordsFailed         int64         `json:"records_failed"`
	Errors                []RecordError `json:"errors"`
	TransferredIDs        []int64       `json:"transferred_ids"`
	TargetSizeBytes       int64         `json:"target_size_bytes"`
	SuccessRate           float64       `json:"success_rate"`
	ErrorRate             float64       `json:"error_rate"`
}

// ValidationResult compares the source's LOG count against what this run's
// transfer confirmed inserted. TargetLogCount is the target's total row count,
// which can exceed TransferredCount when earlier runs already migrated records.
type ValidationResult struct {
	SourceLogCount   int64  `json:"source_log_count"`
	TargetLogCount   int64  `json:"target_log_count"`
	TransferredCount int64  `json:"transferred_count"`
	Match            bool   `json:"match"`
	OverrideReason   string `json:"override_reason,omitempty"`
}

// PruneResult reports the irreversible deletion phase.
type PruneResult struct {
	SizeBefore     int64 `json:"size_before"`
	SizeAfter      int64 `json:"size_after"`
	RowsDeleted    int64 `json:"rows_deleted"`
	RemovalSuccess bool  `json:"removal_success"`
	Skipped        bool  `json:"skipped"`
}

// AccessResult reports façade generation.
type AccessResult struct {
	ArtifactPath string `json:"artifact_path"`
	Generated    bool   `json:"generated"`
}

// Report is the per-run JSON artifact. It is always produced, including on
// failure, so the operator can see exactly how far the pipeline progressed.
type Report struct {
	RunID          string            `json:"run_id"`
	StartedAt      string            `json:"started_at"`
	FinishedAt     string            `json:"finished_at"`
	State          State             `json:"state"`
	Analysis       *AnalysisReport   `json:"analysis,omitempty"`
	Backup         *BackupResult     `json:"backup,omitempty"`
	SchemaCreated  bool              `json:"schema_created"`
	Transfer       *TransferResult   `json:"transfer,omitempty"`
	Validation     *ValidationResult `json:"validation,omitempty"`
	Prune          *PruneResult      `json:"prune,omitempty"`
	Access         *AccessResult     `json:"access,omitempty"`
	LogsExtracted  int64             `json:"logs_extracted"`
	LogsRemoved    int64             `json:"logs_removed"`
	DurationsMS    map[string]int64  `json:"phase_durations_ms"`
	OverallSuccess bool              `json:"overall_success"`
	Error          string            `json:"error,omitempty"`
}
