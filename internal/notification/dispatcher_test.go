package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parish/internal/notification/metrics"
	id "parish/pkg/domain"
)

type stubChannel struct {
	name string
	err  error
	got  []Notification
}

func (c *stubChannel) Name() string { return c.name }

func (c *stubChannel) Deliver(_ context.Context, n Notification) error {
	c.got = append(c.got, n)
	return c.err
}

func TestDispatcherFansOut(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	failing := &stubChannel{name: "email", err: errors.New("smtp: connection refused")}
	inbox := &stubChannel{name: "inbox"}
	d := NewDispatcher(WithChannel(failing), WithChannel(nil), WithChannel(inbox), WithMetrics(m))

	n := Notification{RecipientID: id.NewUserID(), Kind: KindDutyAssigned, Subject: "New duty assigned"}
	d.Notify(context.Background(), n)

	require.Len(t, failing.got, 1)
	require.Len(t, inbox.got, 1, "a failing channel must not stop later channels")
	assert.Equal(t, n, inbox.got[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Delivered.WithLabelValues("inbox", string(KindDutyAssigned))))
}

func TestDispatcherWithoutChannels(t *testing.T) {
	assert.NotPanics(t, func() {
		NewDispatcher().Notify(context.Background(), Notification{Kind: KindMemberRemoved})
	})
}
