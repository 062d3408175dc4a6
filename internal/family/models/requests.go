package models

import (
	"strings"

	"parish/pkg/platform/validation"
)

const relationshipTag = "relationship"

func init() {
	validation.Register(relationshipTag, validation.OneOf(Relationships...), "{0} must be one of spouse, parent, child, sibling, grandparent, grandchild, guardian, relative or other")
}

// CreateFamilyRequest starts a family with the caller as head.
type CreateFamilyRequest struct {
	Name    string `json:"name" validate:"notblank,max=255"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=50"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
}

func (r *CreateFamilyRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *CreateFamilyRequest) Validate() error {
	return validation.Struct(r)
}

// UpdateFamilyRequest changes contact details. Nil fields are unchanged.
type UpdateFamilyRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=255"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
}

func (r *UpdateFamilyRequest) Normalize() {
	for _, f := range []*string{r.Name, r.Address, r.Phone} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if r.Email != nil {
		*r.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
}

func (r *UpdateFamilyRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return validation.Field("name", "name cannot be blank")
	}
	return validation.Struct(r)
}

// Apply copies the set fields onto f.
func (r *UpdateFamilyRequest) Apply(f *Family) {
	if r.Name != nil {
		f.Name = *r.Name
	}
	if r.Address != nil {
		f.Address = *r.Address
	}
	if r.Phone != nil {
		f.Phone = *r.Phone
	}
	if r.Email != nil {
		f.Email = *r.Email
	}
}

// InviteRequest invites a user by id or email.
type InviteRequest struct {
	InviteeID    string `json:"invitee_id" validate:"required_without=InviteeEmail,omitempty,uuid"`
	InviteeEmail string `json:"invitee_email" validate:"required_without=InviteeID,omitempty,email"`
	Relationship string `json:"relationship" validate:"required,relationship"`
}

func (r *InviteRequest) Normalize() {
	r.InviteeID = strings.TrimSpace(r.InviteeID)
	r.InviteeEmail = strings.ToLower(strings.TrimSpace(r.InviteeEmail))
	r.Relationship = strings.ToLower(strings.TrimSpace(r.Relationship))
}

func (r *InviteRequest) Validate() error {
	return validation.Struct(r)
}
