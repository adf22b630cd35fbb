package scenario

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobility-cosim/platform/simproto"
)

func TestWindowRateScalesByPeriodMultiplier(t *testing.T) {
	base := Window{Begin: 0, End: 60, ExpectedDemands: 6}
	peak := base
	peak.PeriodID = 2 // 1.6x in data.TimePeriodMultiplier
	offpeak := base
	offpeak.PeriodID = 1 // 0.3x

	assert.InDelta(t, 0.1, base.rate(), 1e-9)
	assert.InDelta(t, 0.16, peak.rate(), 1e-9)
	assert.InDelta(t, 0.03, offpeak.rate(), 1e-9)
}

func TestWindowPeriodDefendsAgainstNonPositiveSpan(t *testing.T) {
	w := Window{Begin: 10, End: 10, ExpectedDemands: 5}
	assert.Equal(t, unitMinutes, w.period())
}

func TestWindowGenerateStaysWithinBeginEnd(t *testing.T) {
	w := Window{Begin: 100, End: 160, ExpectedDemands: 30, PeriodID: 2}
	rng := rand.New(rand.NewSource(1))
	depts := w.generate(rng)
	for _, d := range depts {
		assert.GreaterOrEqual(t, d, w.Begin)
		assert.Less(t, d, w.End)
	}
}

func TestSetupAssignsUserIDsInSortedDeptOrder(t *testing.T) {
	g := NewGenerator()
	g.Setup([]Window{
		{Begin: 0, End: 120, ExpectedDemands: 20, Org: simproto.Location{LocationID: "A"}, Dst: simproto.Location{LocationID: "B"}},
	}, 42, "rider-%d")

	require.NotEmpty(t, g.demands)
	for i := 1; i < len(g.demands); i++ {
		prev, cur := g.demands[i-1], g.demands[i]
		assert.LessOrEqual(t, sortKey(prev.reserveAt), sortKey(cur.reserveAt))
		if sortKey(prev.reserveAt) == sortKey(cur.reserveAt) {
			assert.LessOrEqual(t, prev.dept, cur.dept)
		}
	}
	assert.Equal(t, "rider-1", g.demands[0].userID)
	assert.NotEmpty(t, g.demands[0].demandID)
	assert.NotEqual(t, g.demands[0].demandID, g.demands[1].demandID)
}

func TestSetupIsDeterministicForAFixedSeed(t *testing.T) {
	windows := []Window{
		{Begin: 0, End: 240, ExpectedDemands: 40, Org: simproto.Location{LocationID: "A"}, Dst: simproto.Location{LocationID: "B"}, PeriodID: 2},
	}
	g1 := NewGenerator()
	g1.Setup(windows, 7, "user-%d")
	g2 := NewGenerator()
	g2.Setup(windows, 7, "user-%d")

	require.Equal(t, len(g1.demands), len(g2.demands))
	for i := range g1.demands {
		assert.Equal(t, g1.demands[i].dept, g2.demands[i].dept)
		assert.Equal(t, g1.demands[i].userID, g2.demands[i].userID)
	}
}

func TestStartEmitsImmediateDemandWithoutDept(t *testing.T) {
	g := NewGenerator()
	g.demands = []demand{
		{dept: 10, userID: "u1", window: Window{Org: simproto.Location{LocationID: "A"}, Dst: simproto.Location{LocationID: "B"}}},
	}
	g.Start()
	g.Clock.Run(20)

	events := g.DrainEvents()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, simproto.EventDemand, e.EventType)
	assert.Equal(t, 10.0, e.Time)
	assert.Nil(t, e.Details["dept"])
	assert.Equal(t, "u1", e.Details["userId"])
}

func TestStartEmitsAdvanceReservationWithDeptSet(t *testing.T) {
	reserveAt := 5.0
	g := NewGenerator()
	g.demands = []demand{
		{reserveAt: &reserveAt, dept: 30, userID: "u2", window: Window{Org: simproto.Location{LocationID: "A"}, Dst: simproto.Location{LocationID: "B"}}},
	}
	g.Start()
	g.Clock.Run(40)

	events := g.DrainEvents()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, 5.0, e.Time, "fires at reserveAt, not dept")
	assert.Equal(t, 30.0, e.Details["dept"])
}

func TestDrainEventsClearsAfterRead(t *testing.T) {
	g := NewGenerator()
	g.demands = []demand{{dept: 1, userID: "u1", window: Window{Org: simproto.Location{LocationID: "A"}, Dst: simproto.Location{LocationID: "B"}}}}
	g.Start()
	g.Clock.Run(5)

	require.Len(t, g.DrainEvents(), 1)
	assert.Empty(t, g.DrainEvents())
}

func TestFormatUserIDSubstitutesPlaceholderAndFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "rider-7", formatUserID("rider-%d", 7))
	assert.Equal(t, "demand-3", formatUserID("", 3))
	assert.Equal(t, "demand-42", formatUserID("demand-%s", 42))
}
