package training

import (
	"context"
	"time"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain"
)

// Sample is one labeled observation appended to the training buffer. The
// label is the rule scorer's own prediction until a curated set replaces it.
type Sample struct {
	ID           uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	RequesterKey string         `json:"requester_key" gorm:"index"`
	Features     domain.JSONMap `json:"features" gorm:"type:jsonb"`
	Anomalous    bool           `json:"anomalous"`
	Confidence   float64        `json:"confidence"`
	CreatedAt    time.Time      `json:"created_at"`
}

type Repository interface {
	Save(ctx context.Context, sample *Sample) error
	Recent(ctx context.Context, limit int) ([]*Sample, error)
}
