package protocol

import (
	"context"

	"github.com/dukex/episodic/pkg/models"
)

type Publisher interface {
	Upload(ctx context.Context, request models.UploadRequest) (*models.UploadResult, error)
	Info(ctx context.Context, externalID string) (map[string]any, error)
}
