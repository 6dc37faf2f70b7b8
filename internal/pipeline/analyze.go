package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/gzip"

	"github.com/roach88/logsplit/internal/docstore"
	"github.com/roach88/logsplit/internal/record"
)

// compressionSampleLimit caps how many of the largest LOG contents the
// analyzer gzips for its estimate.
const compressionSampleLimit = 10

// Analyze inspects the source store without side effects: counts, sizes, the
// largest LOG records, a category breakdown, the extraction impact, and a
// sampled compression estimate. Safe to run any number of times; an empty LOG
// set yields all-zero counts, not an error.
func Analyze(ctx context.Context, src *docstore.Store) (*AnalysisReport, error) {
	total, err := src.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	logCount, err := src.CountByKind(ctx, record.KindLog)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	logBytes, err := src.BytesByKind(ctx, record.KindLog)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	largest, err := src.TopLargestByKind(ctx, record.KindLog, compressionSampleLimit)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	categories, err := src.CategoryBreakdown(ctx, record.KindLog)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	sizeBytes, err := src.SizeBytes()
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	impact := ExtractionImpact{
		RecordsRemoved:   logCount,
		RecordsRemaining: total - logCount,
		BytesFreed:       logBytes,
		BytesRemaining:   sizeBytes - logBytes,
	}
	if impact.BytesRemaining < 0 {
		impact.BytesRemaining = 0
	}
	if sizeBytes > 0 {
		impact.ReductionPct = float64(logBytes) / float64(sizeBytes) * 100
	}

	estimate, err := estimateCompression(ctx, src, logBytes)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	return &AnalysisReport{
		TotalDocuments: total,
		LogCount:       logCount,
		LogBytes:       logBytes,
		TopLargest:     largest,
		Categories:     categories,
		Impact:         impact,
		Compression:    estimate,
	}, nil
}

// estimateCompression gzips the largest LOG contents and projects the sampled
// ratio across the full LOG byte size.
func estimateCompression(ctx context.Context, src *docstore.Store, totalLogBytes int64) (CompressionEstimate, error) {
	contents, err := src.LargestContents(ctx, record.KindLog, compressionSampleLimit)
	if err != nil {
		return CompressionEstimate{}, err
	}

	var est CompressionEstimate
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	for _, c := range contents {
		if c == "" {
			continue
		}
		if _, err := zw.Write([]byte(c)); err != nil {
			return CompressionEstimate{}, fmt.Errorf("compress sample: %w", err)
		}
		est.SampledRecords++
		est.SampledBytes += int64(len(c))
	}
	if err := zw.Close(); err != nil {
		return CompressionEstimate{}, fmt.Errorf("close sample compressor: %w", err)
	}

	if est.SampledBytes == 0 {
		est.Ratio = 1.0
		return est, nil
	}

	est.CompressedBytes = int64(buf.Len())
	est.Ratio = float64(est.CompressedBytes) / float64(est.SampledBytes)
	est.ProjectedBytes = int64(est.Ratio * float64(totalLogBytes))
	return est, nil
}
