package webapi

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"harbormon/collector-service/biz/domain"
	"harbormon/collector-service/config"
)

type MinioAPI struct {
	BaseURL         string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

func NewMinioAPI(cfg *config.Config) *MinioAPI {
	return &MinioAPI{
		BaseURL:         cfg.Minio.BaseURL,
		AccessKeyID:     cfg.Minio.AccessKeyID,
		SecretAccessKey: cfg.Minio.SecretAccessKey,
		Bucket:          cfg.Minio.Bucket,
	}
}

// UploadReport archives the raw findings payload of one scan and returns an
// object URL for the scan record.
func (m *MinioAPI) UploadReport(ctx context.Context, scanID uuid.UUID, payload []byte) (string, error) {
	minioClient, err := minio.New(m.BaseURL, &minio.Options{
		Creds:  credentials.NewStaticV4(m.AccessKeyID, m.SecretAccessKey, ""),
		Secure: false,
	})
	if err != nil {
		zap.L().Error("minio.New", zap.Error(err))
		return "", domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}

	objectName := fmt.Sprintf("scans/%s.json", scanID)
	_, err = minioClient.PutObject(ctx, m.Bucket, objectName, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		zap.L().Error("minioClient.PutObject", zap.Error(err), zap.String("object", objectName))
		return "", domain.WrapErrorf(err, domain.ErrInternalServerError, domain.MessageInternalServerError)
	}

	return fmt.Sprintf("%s/%s/%s", m.BaseURL, m.Bucket, objectName), nil
}
