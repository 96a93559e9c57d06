package fingerprint

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain"
)

// Fingerprint is the persisted device signature. Created once per request
// and never mutated afterwards; persistence is advisory only.
type Fingerprint struct {
	ID         uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	Hash       string             `json:"hash" gorm:"index"`
	DeviceID   string             `json:"device_id" gorm:"index"`
	IP         string             `json:"ip" gorm:"index"`
	UserID     string             `json:"user_id"`
	UserAgent  string             `json:"user_agent"`
	Attributes domain.JSONMap     `json:"attributes" gorm:"type:jsonb"`
	Confidence float64            `json:"confidence"`
	Anomalies  domain.StringArray `json:"anomalies" gorm:"type:jsonb"`
	RiskScore  int                `json:"risk_score"`
	CreatedAt  time.Time          `json:"created_at"`
}

func (f *Fingerprint) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	return nil
}

type Repository interface {
	Save(ctx context.Context, fp *Fingerprint) error
	CountSessionsByDeviceID(ctx context.Context, deviceID string) (int64, error)
	FindRecentByDeviceID(ctx context.Context, deviceID string, limit int) ([]*Fingerprint, error)
}
