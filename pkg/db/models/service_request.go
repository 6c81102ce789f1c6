package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quotation-engine/pkg/enums"
)

// ServiceRequest is the client's request for survey work that a quote answers.
type ServiceRequest struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientUserID  uuid.UUID           `gorm:"column:client_user_id;type:uuid;not null"`
	Title         string              `gorm:"column:title;not null"`
	SurveyAreaSqm decimal.Decimal     `gorm:"column:survey_area_sqm;type:numeric(14,2);not null;default:0"`
	Status        enums.RequestStatus `gorm:"column:status;type:request_status;not null;default:'open'"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
