// Package archive keeps immutable S3 snapshots of every submitted workflow
// configuration, including fallback completions that never reached the
// engine, so support can reconstruct what a user built.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/flowline-ai/flowline/internal/workflow"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SnapshotRecord is the archived form of one submission.
type SnapshotRecord struct {
	SessionID  string              `json:"session_id"`
	OwnerID    string              `json:"owner_id"`
	WorkflowID string              `json:"workflow_id,omitempty"`
	Name       string              `json:"name"`
	Persisted  bool                `json:"persisted"`
	Aggregate  *workflow.Aggregate `json:"aggregate"`
	ArchivedAt time.Time           `json:"archived_at"`
}

// ManifestEntry is one JSONL line in the monthly manifest.
type ManifestEntry struct {
	SessionID  string `json:"session_id"`
	S3Key      string `json:"s3_key"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Persisted  bool   `json:"persisted"`
	ArchivedAt string `json:"archived_at"`
}

// Store archives workflow snapshots to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ArchiveSnapshot writes a SnapshotRecord as JSON to S3 and appends to the
// monthly manifest.
func (s *Store) ArchiveSnapshot(ctx context.Context, record *SnapshotRecord) error {
	if !s.Enabled() {
		return nil
	}

	now := record.ArchivedAt
	if now.IsZero() {
		now = time.Now().UTC()
		record.ArchivedAt = now
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal snapshot: %w", err)
	}

	s3Key := fmt.Sprintf("workflows/v1/by-date/%d/%02d/%02d/%s.json",
		now.Year(), now.Month(), now.Day(), record.SessionID)

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", s3Key, err)
	}

	s.logger.Info("archived workflow snapshot",
		"session_id", record.SessionID,
		"s3_key", s3Key,
		"persisted", record.Persisted,
	)

	entry := ManifestEntry{
		SessionID:  record.SessionID,
		S3Key:      s3Key,
		WorkflowID: record.WorkflowID,
		Persisted:  record.Persisted,
		ArchivedAt: now.Format(time.RFC3339),
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		// The snapshot itself is already archived.
		s.logger.Warn("failed to append manifest", "error", err, "session_id", record.SessionID)
	}

	return nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// Uses read-modify-write since S3 doesn't support append.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := time.Now().UTC()
	manifestKey := fmt.Sprintf("workflows/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	if err != nil {
		if !isNotFoundErr(err) {
			s.logger.Debug("manifest not readable, starting fresh", "key", manifestKey, "error", err)
		}
	} else {
		existing, _ = io.ReadAll(getResp.Body)
		getResp.Body.Close()
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}

	return nil
}

func isNotFoundErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}
