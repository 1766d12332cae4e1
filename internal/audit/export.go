package audit

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/config"
	"github.com/ormvat/dossierflow/internal/models"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// ExportResult describes an exported trail.
type ExportResult struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Checksum string `json:"checksum"`
	Entries  int    `json:"entries"`
}

// Exporter copies an entity's audit trail to S3-compatible object storage
// as JSON Lines, oldest entry first.
type Exporter struct {
	log    *Log
	config *config.Config
	now    func() time.Time
}

// NewExporter constructs an Exporter writing to the bucket named in cfg.
func NewExporter(log *Log, cfg *config.Config) *Exporter {
	return &Exporter{log: log, config: cfg, now: time.Now}
}

func (x *Exporter) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(x.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			x.config.S3RootUser,
			x.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(x.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Export verifies the trail of (entityType, entityID) and uploads it. A
// trail that fails verification is not exported.
func (x *Exporter) Export(ctx context.Context, entityType, entityID string) (*ExportResult, error) {
	trail, err := x.log.QueryByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if len(trail) == 0 {
		return nil, fmt.Errorf("audit trail %s/%s: %w", entityType, entityID, common.ErrorNotFound)
	}
	trail = chronological(trail)
	if _, err := VerifyChain(trail); err != nil {
		return nil, err
	}

	body, checksum, err := EncodeJSONL(trail)
	if err != nil {
		return nil, err
	}

	client, err := x.client(ctx)
	if err != nil {
		return nil, err
	}

	bucket := x.config.S3Bucket
	key := fmt.Sprintf("audit/%s/%s/%s.jsonl", entityType, entityID, x.now().UTC().Format("20060102T150405Z"))

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
		Metadata: map[string]string{
			"sha256":  checksum,
			"entries": strconv.Itoa(len(trail)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload audit trail: %w", err)
	}

	x.log.logger.Info(ctx, "audit trail exported",
		"entity_type", entityType, "entity_id", entityID, "key", key, "entries", len(trail))

	return &ExportResult{Bucket: bucket, Key: key, Checksum: checksum, Entries: len(trail)}, nil
}

// EncodeJSONL writes one JSON object per line and returns the body with its
// hex SHA-256 checksum.
func EncodeJSONL(entries []*models.AuditEntry) ([]byte, string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, "", fmt.Errorf("encode audit entry: %w", err)
		}
	}
	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}
