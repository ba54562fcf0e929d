package feed

import (
	"github.com/DataDog/datadog-go/statsd"
	Logger "github.com/Luismorlan/socialmux/utils/log"
)

const (
	ddogLiveSubscriptionsGauge = "feed.live_subscriptions"
	ddogSubscribeCounter       = "feed.subscribe"
	ddogTeardownCounter        = "feed.teardown"
	ddogCapRejectedCounter     = "feed.subscribe_cap_rejected"
	ddogMutationCounter        = "feed.mutation"
)

// Metrics reports engine health to Datadog. A nil client turns every report
// into a no-op, which is what tests and local runs use.
type Metrics struct {
	client *statsd.Client
}

func NewMetrics(client *statsd.Client) *Metrics {
	return &Metrics{client: client}
}

func (m *Metrics) ReportLiveSubscriptions(count int) {
	if m == nil || m.client == nil {
		return
	}
	if err := m.client.Gauge(ddogLiveSubscriptionsGauge, float64(count), nil, 1); err != nil {
		Logger.Log.Infoln("cannot report live subscription gauge")
	}
}

func (m *Metrics) ReportSubscribe(itemId string) {
	m.incr(ddogSubscribeCounter, []string{"item:" + itemId})
}

func (m *Metrics) ReportTeardown(itemId string) {
	m.incr(ddogTeardownCounter, []string{"item:" + itemId})
}

func (m *Metrics) ReportCapRejected() {
	m.incr(ddogCapRejectedCounter, nil)
}

// ReportMutation tags the mutation kind and its outcome (applied, rolled_back
// or fallback).
func (m *Metrics) ReportMutation(kind string, outcome string) {
	m.incr(ddogMutationCounter, []string{"kind:" + kind, "outcome:" + outcome})
}

func (m *Metrics) incr(name string, tags []string) {
	if m == nil || m.client == nil {
		return
	}
	if err := m.client.Incr(name, tags, 1); err != nil {
		Logger.Log.Infoln("cannot report counter ", name)
	}
}
