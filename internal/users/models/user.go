package models

import (
	"net/mail"
	"strings"
	"time"

	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
)

// Status is the account status.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// FamilyRole is the user's role inside their family.
type FamilyRole string

const (
	FamilyRoleNone   FamilyRole = ""
	FamilyRoleHead   FamilyRole = "head"
	FamilyRoleMember FamilyRole = "member"
)

// Roles are the parish role flags. Any of them excludes family membership.
type Roles struct {
	IsAdmin  bool `json:"is_admin"`
	IsStaff  bool `json:"is_staff"`
	IsPriest bool `json:"is_priest"`
}

// User is a parishioner, staff member, administrator or priest.
//
// Invariants:
//   - Email is a valid address; uniqueness is case-insensitive (store)
//   - FirstName is non-empty
//   - A user holding any parish role never has a FamilyID
//   - IsFamilyHead implies FamilyID is set and FamilyRole is head
//   - FamilyRole is empty exactly when FamilyID is nil
type User struct {
	ID           id.UserID    `db:"id" json:"id"`
	Email        string       `db:"email" json:"email"`
	FirstName    string       `db:"first_name" json:"first_name"`
	LastName     string       `db:"last_name" json:"last_name"`
	FamilyID     *id.FamilyID `db:"family_id" json:"family_id"`
	FamilyRole   FamilyRole   `db:"family_role" json:"family_role,omitempty"`
	IsFamilyHead bool         `db:"is_family_head" json:"is_family_head"`
	IsAdmin      bool         `db:"is_admin" json:"is_admin"`
	IsStaff      bool         `db:"is_staff" json:"is_staff"`
	IsPriest     bool         `db:"is_priest" json:"is_priest"`
	Status       Status       `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// NewUser builds an active user with no family.
func NewUser(userID id.UserID, email, firstName, lastName string, roles Roles, now time.Time) (*User, error) {
	u := &User{
		ID:        userID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		IsAdmin:   roles.IsAdmin,
		IsStaff:   roles.IsStaff,
		IsPriest:  roles.IsPriest,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the user invariants.
func (u *User) Validate() error {
	if u.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "user id is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil || strings.ContainsAny(u.Email, "<> ") {
		return dErrors.New(dErrors.CodeInvariantViolation, "email must be a valid address")
	}
	if u.FirstName == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "first name is required")
	}
	if !u.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "status must be active or inactive")
	}
	if u.HasParishRole() && u.FamilyID != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "admin, staff and priest accounts cannot belong to a family")
	}
	if (u.FamilyID == nil) != (u.FamilyRole == FamilyRoleNone) {
		return dErrors.New(dErrors.CodeInvariantViolation, "family role must be set exactly when the user has a family")
	}
	if u.IsFamilyHead && u.FamilyRole != FamilyRoleHead {
		return dErrors.New(dErrors.CodeInvariantViolation, "family head must hold the head role")
	}
	return nil
}

// HasParishRole reports whether any of the admin, staff or priest flags is set.
func (u *User) HasParishRole() bool {
	return u.IsAdmin || u.IsStaff || u.IsPriest
}

// CanManageDuties reports whether the user may edit the duty calendar.
func (u *User) CanManageDuties() bool {
	return u.IsActive() && (u.IsAdmin || u.IsStaff)
}

func (u *User) HasFamily() bool {
	return u.FamilyID != nil
}

// InFamily reports whether the user belongs to familyID.
func (u *User) InFamily(familyID id.FamilyID) bool {
	return u.FamilyID != nil && *u.FamilyID == familyID
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// JoinFamily links the user to familyID with role.
func (u *User) JoinFamily(familyID id.FamilyID, role FamilyRole, now time.Time) {
	fid := familyID
	u.FamilyID = &fid
	u.FamilyRole = role
	u.IsFamilyHead = role == FamilyRoleHead
	u.UpdatedAt = now
}

// ClearFamily removes any family linkage.
func (u *User) ClearFamily(now time.Time) {
	u.FamilyID = nil
	u.FamilyRole = FamilyRoleNone
	u.IsFamilyHead = false
	u.UpdatedAt = now
}

// SetStatus changes the account status.
func (u *User) SetStatus(status Status, now time.Time) error {
	if !status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "status must be active or inactive")
	}
	u.Status = status
	u.UpdatedAt = now
	return nil
}
