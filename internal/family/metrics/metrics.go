package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for family membership.
type Metrics struct {
	FamiliesCreated     prometheus.Counter
	InvitationsSent     prometheus.Counter
	InvitationsAnswered *prometheus.CounterVec
	MembersDeparted     *prometheus.CounterVec
	RuleDenials         *prometheus.CounterVec
}

// New registers the family collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FamiliesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "parish_families_created_total",
			Help: "Total number of families created",
		}),
		InvitationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "parish_family_invitations_sent_total",
			Help: "Total number of family invitations sent",
		}),
		InvitationsAnswered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parish_family_invitations_answered_total",
			Help: "Family invitations answered, by outcome",
		}, []string{"outcome"}),
		MembersDeparted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parish_family_members_departed_total",
			Help: "Members leaving a family, by way of departure",
		}, []string{"way"}),
		RuleDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parish_family_rule_denials_total",
			Help: "Membership operations denied by a rule, by operation",
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementFamilyCreated() {
	m.FamiliesCreated.Inc()
}

func (m *Metrics) IncrementInvitationSent() {
	m.InvitationsSent.Inc()
}

// IncrementAnswered records an accepted or rejected invitation.
func (m *Metrics) IncrementAnswered(outcome string) {
	m.InvitationsAnswered.WithLabelValues(outcome).Inc()
}

// IncrementDeparted records a removal or a voluntary leave.
func (m *Metrics) IncrementDeparted(way string) {
	m.MembersDeparted.WithLabelValues(way).Inc()
}

func (m *Metrics) IncrementDenied(operation string) {
	m.RuleDenials.WithLabelValues(operation).Inc()
}
