package models

import (
	"strings"
	"time"

	usermodels "parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
)

// Family is a household grouping parishioners under one head.
type Family struct {
	ID        id.FamilyID `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Address   string      `db:"address" json:"address"`
	Phone     string      `db:"phone" json:"phone"`
	Email     string      `db:"email" json:"email"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// NewFamily builds a family with the given contact details.
func NewFamily(familyID id.FamilyID, name, address, phone, email string, now time.Time) (*Family, error) {
	f := &Family{
		ID:        familyID,
		Name:      strings.TrimSpace(name),
		Address:   strings.TrimSpace(address),
		Phone:     strings.TrimSpace(phone),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Family) Validate() error {
	if f.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "family id is required")
	}
	if f.Name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "family name is required")
	}
	return nil
}

// View is a family with its users and relationship rows.
type View struct {
	Family        *Family            `json:"family"`
	Members       []*usermodels.User `json:"members"`
	Relationships []*Member          `json:"relationships"`
}
