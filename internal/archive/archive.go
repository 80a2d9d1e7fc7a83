// Package archive keeps a copy of every uploaded source extract in S3
package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// Config holds the archive bucket settings. An empty bucket disables archiving.
type Config struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	Prefix string `mapstructure:"prefix"`
}

// DefaultConfig returns the default key prefix with no bucket set
func DefaultConfig() *Config {
	return &Config{Region: "ap-south-1", Prefix: "extracts"}
}

// Enabled reports whether a bucket is configured
func (c *Config) Enabled() bool {
	return c != nil && c.Bucket != ""
}

// ObjectStore is the S3 call the archiver needs
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads source files under <prefix>/<report>/<yyyy-mm-dd>/<id>_<name>
type Archiver struct {
	store  ObjectStore
	config *Config
	now    func() time.Time
	logger logger.Logger
}

// NewS3 builds an archiver from the default AWS credential chain
func NewS3(ctx context.Context, config *Config) (*Archiver, error) {
	if !config.Enabled() {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "archive.bucket", nil, nil)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "archive.region", config.Region, err)
	}

	return New(s3.NewFromConfig(cfg), config), nil
}

// New creates an archiver over store
func New(store ObjectStore, config *Config) *Archiver {
	return &Archiver{
		store:  store,
		config: config,
		now:    time.Now,
		logger: logger.GetGlobalLogger().WithComponent("archive"),
	}
}

// Archive uploads data and returns the object key
func (a *Archiver) Archive(ctx context.Context, report, name string, data []byte) (string, error) {
	key := a.key(report, name)

	_, err := a.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType(name, data)),
	})
	if err != nil {
		a.logger.WithError(err).WithField("key", key).Error("Failed to archive source file")
		return "", errors.PublishError(errors.CodePublishFailed, "s3://"+a.config.Bucket, err)
	}

	a.logger.WithFields(logger.Fields{
		"bucket": a.config.Bucket,
		"key":    key,
		"bytes":  len(data),
	}).Info("Source file archived")
	return key, nil
}

func (a *Archiver) key(report, name string) string {
	base := strings.ReplaceAll(filepath.Base(name), " ", "_")
	object := fmt.Sprintf("%s_%s", uuid.New().String(), base)
	return path.Join(a.config.Prefix, report, a.now().Format("2006-01-02"), object)
}

// ContentType picks the MIME type from the extension, sniffing unknown files
func ContentType(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	}

	if len(data) == 0 {
		return "application/octet-stream"
	}
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}
