package models

import (
	"strings"

	"parish/pkg/platform/validation"
)

// CreateUserRequest seeds a user from the operator API or CLI.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	FirstName string `json:"first_name" validate:"notblank,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	IsAdmin   bool   `json:"is_admin"`
	IsStaff   bool   `json:"is_staff"`
	IsPriest  bool   `json:"is_priest"`
}

func (r *CreateUserRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

func (r *CreateUserRequest) Validate() error {
	return validation.Struct(r)
}

func (r *CreateUserRequest) Roles() Roles {
	return Roles{IsAdmin: r.IsAdmin, IsStaff: r.IsStaff, IsPriest: r.IsPriest}
}

// SetStatusRequest activates or deactivates an account.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (r *SetStatusRequest) Normalize() {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

func (r *SetStatusRequest) Validate() error {
	return validation.Struct(r)
}
