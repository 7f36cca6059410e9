// Package reliability provides offsite backup of the market snapshot to
// any S3-compatible object store.
package reliability

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/gridmate/gridmate/internal/config"
)

// backupTimeout bounds one upload.
const backupTimeout = 60 * time.Second

// SnapshotExporter provides the persisted snapshot document for upload.
// *market.Store satisfies it.
type SnapshotExporter interface {
	ExportJSON() ([]byte, int64, error)
}

// BackupService uploads the snapshot JSON document to an S3-compatible
// bucket. Failures are reported to the caller (the scheduler logs them);
// the service never retries on its own.
type BackupService struct {
	client   *s3.Client
	uploader *manager.Uploader
	exporter SnapshotExporter
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewBackupService creates a backup service from backup configuration.
func NewBackupService(ctx context.Context, cfg *config.BackupConfig, exporter SnapshotExporter, log zerolog.Logger) (*BackupService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// Custom endpoint means an S3-compatible store (R2, MinIO);
			// those want path-style addressing.
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &BackupService{
		client:   client,
		uploader: manager.NewUploader(client),
		exporter: exporter,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		log:      log.With().Str("service", "backup").Logger(),
	}, nil
}

// Backup uploads the current snapshot document, keyed by version and
// timestamp, with its checksum attached as object metadata.
func (s *BackupService) Backup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, backupTimeout)
	defer cancel()

	body, version, err := s.exporter.ExportJSON()
	if err != nil {
		return fmt.Errorf("failed to export snapshot for backup: %w", err)
	}

	sum := sha256.Sum256(body)
	checksum := hex.EncodeToString(sum[:])
	key := fmt.Sprintf("%ssnapshot-v%d-%s.json", s.prefix, version, time.Now().UTC().Format("20060102T150405Z"))

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"sha256":  checksum,
			"version": fmt.Sprintf("%d", version),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot backup: %w", err)
	}

	s.log.Info().
		Str("key", key).
		Int64("version", version).
		Int("size_bytes", len(body)).
		Msg("Snapshot backup uploaded")

	return nil
}

// ListBackups returns the object keys of stored backups, newest last.
func (s *BackupService) ListBackups(ctx context.Context) ([]string, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot backups: %w", err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}

// BackupJob adapts the backup service to the scheduler.
type BackupJob struct {
	service *BackupService
}

// NewBackupJob creates the scheduled backup job.
func NewBackupJob(service *BackupService) *BackupJob {
	return &BackupJob{service: service}
}

// Name returns the job name used in scheduler logs.
func (j *BackupJob) Name() string {
	return "snapshot_backup"
}

// Run uploads one backup.
func (j *BackupJob) Run() error {
	return j.service.Backup(context.Background())
}
