package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"

	dErrors "parish/pkg/domain-errors"
)

// Typed identifiers keep a family id from being passed where a user id is
// expected. Construct them with the Parse* functions at trust boundaries.
type (
	UserID       uuid.UUID
	FamilyID     uuid.UUID
	InvitationID uuid.UUID
	MemberID     uuid.UUID
	DutyEntryID  uuid.UUID
)

const maxIDLength = 64

func parseUUID(s, field string) (uuid.UUID, error) {
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is too long")
	}
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}

func scanUUID(dst *uuid.UUID, src any) error {
	switch v := src.(type) {
	case nil:
		*dst = uuid.Nil
		return nil
	case string:
		u, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*dst = u
		return nil
	case []byte:
		if len(v) == 16 {
			copy(dst[:], v)
			return nil
		}
		u, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*dst = u
		return nil
	case [16]byte:
		*dst = v
		return nil
	default:
		return fmt.Errorf("cannot scan %T into uuid", src)
	}
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseFamilyID(s string) (FamilyID, error) {
	u, err := parseUUID(s, "family_id")
	return FamilyID(u), err
}

func ParseInvitationID(s string) (InvitationID, error) {
	u, err := parseUUID(s, "invitation_id")
	return InvitationID(u), err
}

func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s, "member_id")
	return MemberID(u), err
}

func ParseDutyEntryID(s string) (DutyEntryID, error) {
	u, err := parseUUID(s, "duty_entry_id")
	return DutyEntryID(u), err
}

func NewUserID() UserID             { return UserID(uuid.New()) }
func NewFamilyID() FamilyID         { return FamilyID(uuid.New()) }
func NewInvitationID() InvitationID { return InvitationID(uuid.New()) }
func NewMemberID() MemberID         { return MemberID(uuid.New()) }
func NewDutyEntryID() DutyEntryID   { return DutyEntryID(uuid.New()) }

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
func (id UserID) Value() (driver.Value, error) { return id.String(), nil }
func (id *UserID) Scan(src any) error          { return scanUUID((*uuid.UUID)(id), src) }

func (id FamilyID) String() string { return uuid.UUID(id).String() }
func (id FamilyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id FamilyID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *FamilyID) UnmarshalText(b []byte) error {
	parsed, err := ParseFamilyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
func (id FamilyID) Value() (driver.Value, error) { return id.String(), nil }
func (id *FamilyID) Scan(src any) error          { return scanUUID((*uuid.UUID)(id), src) }

func (id InvitationID) String() string { return uuid.UUID(id).String() }
func (id InvitationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id InvitationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *InvitationID) UnmarshalText(b []byte) error {
	parsed, err := ParseInvitationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
func (id InvitationID) Value() (driver.Value, error) { return id.String(), nil }
func (id *InvitationID) Scan(src any) error          { return scanUUID((*uuid.UUID)(id), src) }

func (id MemberID) String() string { return uuid.UUID(id).String() }
func (id MemberID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *MemberID) UnmarshalText(b []byte) error {
	parsed, err := ParseMemberID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
func (id MemberID) Value() (driver.Value, error) { return id.String(), nil }
func (id *MemberID) Scan(src any) error          { return scanUUID((*uuid.UUID)(id), src) }

func (id DutyEntryID) String() string { return uuid.UUID(id).String() }
func (id DutyEntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DutyEntryID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *DutyEntryID) UnmarshalText(b []byte) error {
	parsed, err := ParseDutyEntryID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
func (id DutyEntryID) Value() (driver.Value, error) { return id.String(), nil }
func (id *DutyEntryID) Scan(src any) error          { return scanUUID((*uuid.UUID)(id), src) }
