package account

import "github.com/caremgr/caremgr/internal/platform/store"

// Account is the tenant every other record traces back to. It maps 1:1 to a
// member login.
type Account struct {
	store.Base
	Login     string `json:"login" validate:"required,login" gorm:"uniqueIndex;not null"`
	FirstName string `json:"first_name" validate:"required,max=128" gorm:"not null"`
	LastName  string `json:"last_name" validate:"required,max=128" gorm:"not null"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
}

func (Account) TableName() string { return "account" }

const RoleMember = "member"

// Member is a login known to the membership store.
type Member struct {
	store.Base
	Login        string `json:"login" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	Role         string `json:"role" gorm:"not null"`
	Active       bool   `json:"active"`
}

func (Member) TableName() string { return "member" }

// NewMember is the input for creating a member.
type NewMember struct {
	Login    string `json:"login" validate:"required,login"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=member admin"`
}

// Registration is the body of the public sign-up endpoint. It creates a
// member and its account together.
type Registration struct {
	Login     string `json:"login" validate:"required,login"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=128"`
	LastName  string `json:"last_name" validate:"required,max=128"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
}

type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}
