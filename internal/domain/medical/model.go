package medical

import (
	"time"

	"github.com/caremgr/caremgr/internal/platform/store"
)

// Facility is a clinic or hospital an account receives care at.
type Facility struct {
	store.Base
	AccountID   int64  `json:"account_id" validate:"gt=0" gorm:"not null;index"`
	Name        string `json:"name" validate:"required,max=255" gorm:"not null"`
	Address     string `json:"address" validate:"max=512"`
	PhoneNumber string `json:"phone_number" validate:"max=32"`
}

func (Facility) TableName() string { return "facility" }

// Provider practices at a facility and is owned through it.
type Provider struct {
	store.Base
	FacilityID  int64  `json:"facility_id" validate:"gt=0" gorm:"not null;index"`
	Name        string `json:"name" validate:"required,max=255" gorm:"not null"`
	Specialty   string `json:"specialty" validate:"max=128"`
	PhoneNumber string `json:"phone_number" validate:"max=32"`
}

func (Provider) TableName() string { return "provider" }

type MedicalAppointment struct {
	store.Base
	AccountID    int64     `json:"account_id" validate:"gt=0" gorm:"not null"`
	ProviderID   int64     `json:"provider_id" validate:"gt=0" gorm:"not null;index"`
	ScheduledFor time.Time `json:"scheduled_for" validate:"required"`
	Reason       string    `json:"reason" validate:"required"`
	Notes        string    `json:"notes"`
}

func (MedicalAppointment) TableName() string { return "medical_appointment" }
