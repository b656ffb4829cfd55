package insurance

import (
	"time"

	"github.com/caremgr/caremgr/internal/platform/store"
)

type Insurer struct {
	store.Base
	AccountID   int64  `json:"account_id" validate:"gt=0" gorm:"not null;index"`
	Name        string `json:"name" validate:"required,max=255" gorm:"not null"`
	PhoneNumber string `json:"phone_number" validate:"max=32"`
	FaxNumber   string `json:"fax_number" validate:"max=32"`
	Website     string `json:"website" validate:"omitempty,url,max=255"`
}

func (Insurer) TableName() string { return "insurer" }

// Authorization request statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

// AuthorizationRequest asks an insurer to approve care. It belongs to an
// insurer of the same account.
type AuthorizationRequest struct {
	store.Base
	AccountID       int64     `json:"account_id" validate:"gt=0" gorm:"not null;index"`
	InsurerID       int64     `json:"insurer_id" validate:"gt=0" gorm:"not null;index"`
	Description     string    `json:"description" validate:"required"`
	ReferenceNumber string    `json:"reference_number" validate:"max=64"`
	Status          string    `json:"status" validate:"oneof=pending approved denied"`
	RequestedOn     time.Time `json:"requested_on"`
}

func (AuthorizationRequest) TableName() string { return "authorization_request" }

// AuthorizationNote is owned through its request.
type AuthorizationNote struct {
	store.Base
	AuthorizationRequestID int64     `json:"authorization_request_id" validate:"gt=0" gorm:"not null;index"`
	Note                   string    `json:"note" validate:"required"`
	WrittenOn              time.Time `json:"written_on"`
}

func (AuthorizationNote) TableName() string { return "authorization_note" }

// AuthorizationFollowUp carries its account alongside the request; both must
// belong to the caller.
type AuthorizationFollowUp struct {
	store.Base
	AccountID              int64     `json:"account_id" validate:"gt=0" gorm:"not null"`
	AuthorizationRequestID int64     `json:"authorization_request_id" validate:"gt=0" gorm:"not null;index"`
	DueOn                  time.Time `json:"due_on"`
	Description            string    `json:"description" validate:"required"`
	Completed              bool      `json:"completed"`
}

func (AuthorizationFollowUp) TableName() string { return "authorization_follow_up" }
