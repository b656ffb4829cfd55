package prescription

import (
	"time"

	"github.com/caremgr/caremgr/internal/platform/store"
)

type Medication struct {
	store.Base
	AccountID  int64  `json:"account_id" validate:"gt=0" gorm:"not null;index"`
	Name       string `json:"name" validate:"required,max=255" gorm:"not null"`
	Dosage     string `json:"dosage" validate:"max=128"`
	Frequency  string `json:"frequency" validate:"max=128"`
	Prescriber string `json:"prescriber" validate:"max=255"`
}

func (Medication) TableName() string { return "medication" }

// PrescriptionPickup records a pharmacy pickup of a medication of the same
// account.
type PrescriptionPickup struct {
	store.Base
	AccountID    int64     `json:"account_id" validate:"gt=0" gorm:"not null"`
	MedicationID int64     `json:"medication_id" validate:"gt=0" gorm:"not null;index"`
	PickupOn     time.Time `json:"pickup_on" validate:"required"`
	Pharmacy     string    `json:"pharmacy" validate:"max=255"`
	Quantity     int       `json:"quantity" validate:"gte=0"`
}

func (PrescriptionPickup) TableName() string { return "prescription_pickup" }
