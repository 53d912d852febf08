package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"tokenvesting/core/types"
)

type payloadEvent struct{ evt *types.Event }

func (p payloadEvent) EventType() string   { return p.evt.Type }
func (p payloadEvent) Event() *types.Event { return p.evt }

func TestEventMetricsCountsAndSums(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.events.WithLabelValues("vesting.released"))
	sumBefore := testutil.ToFloat64(m.amounts.WithLabelValues("vesting.released"))

	m.Emit(payloadEvent{&types.Event{Type: "vesting.released", Attributes: map[string]string{"amount": "45"}}})
	m.Emit(payloadEvent{&types.Event{Type: "vesting.released", Attributes: map[string]string{"amount": "junk"}}})

	require.Equal(t, before+2, testutil.ToFloat64(m.events.WithLabelValues("vesting.released")))
	require.Equal(t, sumBefore+45, testutil.ToFloat64(m.amounts.WithLabelValues("vesting.released")))

	var nilMetrics *eventMetrics
	nilMetrics.Emit(nil)
}

func TestModuleMetricsObserve(t *testing.T) {
	m := ModuleMetrics()
	before := testutil.ToFloat64(m.requests.WithLabelValues("release", "error"))
	m.Observe("release", -32031, 5*time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.requests.WithLabelValues("release", "error")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("release", "-32031")))

	m.RecordThrottle("")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.throttles.WithLabelValues("unspecified")), float64(1))
}
