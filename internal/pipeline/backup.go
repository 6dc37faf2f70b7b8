package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/roach88/logsplit/internal/docstore"
)

// CreateBackup takes a full byte-copy of the source store into backupDir and
// verifies it by digest before returning. A failure here is fatal to the
// pipeline: no mutating phase may run without a verified backup.
//
// The WAL is checkpointed first so the main file copy captures every
// committed write.
func CreateBackup(ctx context.Context, src *docstore.Store, backupDir string, now time.Time) (*BackupResult, error) {
	if err := src.Checkpoint(ctx); err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create backup dir: %w", err)
	}

	srcPath := src.Path()
	base := filepath.Base(srcPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s_backup_%s%s", stem, now.Format("20060102_150405"), ext)
	dstPath := filepath.Join(backupDir, name)

	bytesCopied, err := copyFile(srcPath, dstPath)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}

	srcDigest, err := fileDigest(srcPath)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}
	dstDigest, err := fileDigest(dstPath)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}
	if srcDigest != dstDigest {
		return nil, fmt.Errorf("backup: digest mismatch: source %s, copy %s", srcDigest, dstDigest)
	}

	return &BackupResult{
		Path:     dstPath,
		Bytes:    bytesCopied,
		Digest:   dstDigest,
		Verified: true,
	}, nil
}

func copyFile(srcPath, dstPath string) (int64, error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dstPath)
	if err != nil {
		return 0, fmt.Errorf("create backup file: %w", err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return 0, fmt.Errorf("copy backup file: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close backup file: %w", err)
	}
	return n, nil
}

// fileDigest returns the hex BLAKE2b-256 digest of a file.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for digest: %w", err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("init digest: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
