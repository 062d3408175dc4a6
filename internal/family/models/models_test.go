package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
)

var now = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func TestInvitationLifecycle(t *testing.T) {
	inv, err := NewInvitation(id.NewInvitationID(), id.NewFamilyID(), id.NewUserID(), id.NewUserID(), RelationshipSibling, now)
	require.NoError(t, err)
	assert.True(t, inv.IsPending())
	assert.Nil(t, inv.RespondedAt)

	require.NoError(t, inv.Respond(InvitationRejected, now))
	require.NotNil(t, inv.RespondedAt)
	require.NoError(t, inv.Validate())

	err = inv.Respond(InvitationAccepted, now)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestNewInvitation_RejectsSelfAndUnknownRelationship(t *testing.T) {
	self := id.NewUserID()
	_, err := NewInvitation(id.NewInvitationID(), id.NewFamilyID(), self, self, RelationshipSpouse, now)
	assert.Error(t, err)

	_, err = NewInvitation(id.NewInvitationID(), id.NewFamilyID(), id.NewUserID(), id.NewUserID(), "cousin-in-law", now)
	assert.Error(t, err)
}

func TestParseRelationship(t *testing.T) {
	r, ok := ParseRelationship(" Sibling ")
	assert.True(t, ok)
	assert.Equal(t, RelationshipSibling, r)

	_, ok = ParseRelationship("friend")
	assert.False(t, ok)
}

func TestNewMemberPair(t *testing.T) {
	a, b := id.NewUserID(), id.NewUserID()
	pair := NewMemberPair(id.NewFamilyID(), a, b, RelationshipSpouse, now)
	require.Len(t, pair, 2)
	assert.NotEqual(t, pair[0].ID, pair[1].ID)
	assert.True(t, pair[0].Involves(a))
	assert.True(t, pair[1].Involves(b))
}

func TestInviteRequestValidate(t *testing.T) {
	t.Run("needs an invitee", func(t *testing.T) {
		req := &InviteRequest{Relationship: "sibling"}
		err := req.Validate()
		require.Error(t, err)
		assert.ElementsMatch(t, []string{"invitee_id", "invitee_email"}, dErrors.FieldNames(err))
	})

	t.Run("rejects unknown relationship", func(t *testing.T) {
		req := &InviteRequest{InviteeEmail: "b@example.org", Relationship: "friend"}
		err := req.Validate()
		require.Error(t, err)
		assert.Equal(t, []string{"relationship"}, dErrors.FieldNames(err))
		assert.Contains(t, dErrors.Fields(err)["relationship"][0], "must be one of")
	})

	t.Run("accepts email", func(t *testing.T) {
		req := &InviteRequest{InviteeEmail: " B@Example.org ", Relationship: "Sibling"}
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, "b@example.org", req.InviteeEmail)
	})
}

func TestNewFamily(t *testing.T) {
	f, err := NewFamily(id.NewFamilyID(), " The Smiths ", "", "", "HOME@Smith.org", now)
	require.NoError(t, err)
	assert.Equal(t, "The Smiths", f.Name)
	assert.Equal(t, "home@smith.org", f.Email)

	_, err = NewFamily(id.NewFamilyID(), " ", "", "", "", now)
	assert.Error(t, err)
}
