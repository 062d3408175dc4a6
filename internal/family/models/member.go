package models

import (
	"strings"
	"time"

	id "parish/pkg/domain"
)

// Relationship labels how two family members are related.
type Relationship string

const (
	RelationshipSpouse      Relationship = "spouse"
	RelationshipParent      Relationship = "parent"
	RelationshipChild       Relationship = "child"
	RelationshipSibling     Relationship = "sibling"
	RelationshipGrandparent Relationship = "grandparent"
	RelationshipGrandchild  Relationship = "grandchild"
	RelationshipGuardian    Relationship = "guardian"
	RelationshipRelative    Relationship = "relative"
	RelationshipOther       Relationship = "other"
)

// Relationships lists every accepted label.
var Relationships = []Relationship{
	RelationshipSpouse, RelationshipParent, RelationshipChild, RelationshipSibling,
	RelationshipGrandparent, RelationshipGrandchild, RelationshipGuardian,
	RelationshipRelative, RelationshipOther,
}

// ParseRelationship normalizes and validates a label.
func ParseRelationship(s string) (Relationship, bool) {
	r := Relationship(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

func (r Relationship) IsValid() bool {
	for _, known := range Relationships {
		if r == known {
			return true
		}
	}
	return false
}

// Member is one directed relationship row: UserID relates to RelatedUserID.
// Rows come in symmetric pairs carrying the same label.
type Member struct {
	ID            id.MemberID  `db:"id" json:"id"`
	FamilyID      id.FamilyID  `db:"family_id" json:"family_id"`
	UserID        id.UserID    `db:"user_id" json:"user_id"`
	RelatedUserID id.UserID    `db:"related_user_id" json:"related_user_id"`
	Relationship  Relationship `db:"relationship" json:"relationship"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// NewMemberPair builds the two rows linking a and b.
func NewMemberPair(familyID id.FamilyID, a, b id.UserID, rel Relationship, now time.Time) []*Member {
	return []*Member{
		{ID: id.NewMemberID(), FamilyID: familyID, UserID: a, RelatedUserID: b, Relationship: rel, CreatedAt: now},
		{ID: id.NewMemberID(), FamilyID: familyID, UserID: b, RelatedUserID: a, Relationship: rel, CreatedAt: now},
	}
}

// Involves reports whether userID is on either side of the row.
func (m *Member) Involves(userID id.UserID) bool {
	return m.UserID == userID || m.RelatedUserID == userID
}
