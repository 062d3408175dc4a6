package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"parish/internal/notification"
	"parish/internal/platform/config"
	id "parish/pkg/domain"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func invitation() notification.Notification {
	return notification.Notification{
		RecipientID: id.NewUserID(),
		Email:       "b@example.org",
		Name:        "Ana Novak",
		Kind:        notification.KindFamilyInvitation,
		Subject:     "You have been invited to join a family",
		Data: map[string]string{
			"family_name":  "Novak",
			"inviter_name": "Ivan Novak",
			"relationship": "sibling",
		},
	}
}

func TestRenderEveryKind(t *testing.T) {
	kinds := []notification.Kind{
		notification.KindDutyAssigned,
		notification.KindDutyUpdated,
		notification.KindDutyCancelled,
		notification.KindFamilyInvitation,
		notification.KindInvitationAccepted,
		notification.KindInvitationRejected,
		notification.KindMemberRemoved,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			msg, err := Render(notification.Notification{Kind: kind, Name: "Fr. John", Subject: "s"}, "")
			require.NoError(t, err)
			assert.Contains(t, msg.Text, "Dear Fr. John")
			assert.Contains(t, msg.HTML, "Dear Fr. John")
			assert.NotContains(t, msg.Text, "<no value>")
		})
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	n := invitation()
	n.Data["family_name"] = "<script>x</script>"
	msg, err := Render(n, "")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.Text, "Ivan Novak has invited you to join the <script>x</script> family as sibling.")
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := Render(notification.Notification{Kind: "unknown"}, "")
	assert.Error(t, err)
}

func TestRenderLinksApp(t *testing.T) {
	msg, err := Render(invitation(), "https://parish.example.org")
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "https://parish.example.org")
	assert.Contains(t, msg.HTML, `href="https://parish.example.org"`)

	msg, err = Render(invitation(), "")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "href=")
}

func TestSenderDeliver(t *testing.T) {
	d := &fakeDialer{}
	s := &Sender{dialer: d, from: "office@parish.local"}

	require.NoError(t, s.Deliver(context.Background(), invitation()))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"You have been invited to join a family"}, d.sent[0].GetHeader("Subject"))

	noAddress := invitation()
	noAddress.Email = ""
	assert.ErrorIs(t, s.Deliver(context.Background(), noAddress), ErrNoRecipient)

	d.err = errors.New("dial tcp: connection refused")
	assert.Error(t, s.Deliver(context.Background(), invitation()))
}

func TestNewSenderWithoutHost(t *testing.T) {
	s := NewSender(config.SMTP{}, nil)
	assert.IsType(t, &LogSender{}, s)
	assert.NoError(t, s.Deliver(context.Background(), invitation()))
}
