package useragent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectPlansFiltersByDemandService(t *testing.T) {
	plans := []Plan{
		{Legs: []PlanLeg{{Org: "A", Dst: "B", Service: WalkService}}},
		{Legs: []PlanLeg{{Org: "A", Dst: "C", Service: "bus"}, {Org: "C", Dst: "B", Service: WalkService}}},
	}
	primary, recovery, warned := SelectPlans(plans, "bus", Filter{})
	require.False(t, warned)
	require.NotNil(t, primary)
	require.Equal(t, "bus", primary.Legs[0].Service)
	require.Nil(t, recovery)
}

func TestSelectPlansFallsBackWithWarningWhenServiceUnmatched(t *testing.T) {
	plans := []Plan{
		{Legs: []PlanLeg{{Org: "A", Dst: "B", Service: WalkService}}},
	}
	primary, _, warned := SelectPlans(plans, "bus", Filter{})
	require.True(t, warned)
	require.NotNil(t, primary)
}

func TestSelectPlansAppliesFilterAndSortWhenNoServiceNamed(t *testing.T) {
	plans := []Plan{
		{Legs: []PlanLeg{{Org: "A", Dst: "C", Service: "shuttle"}}},
		{Legs: []PlanLeg{{Org: "A", Dst: "C", Service: "valet"}}},
	}
	filter := Filter{FavoriteServices: map[string]bool{"valet": true}}
	primary, _, warned := SelectPlans(plans, "", filter)
	require.False(t, warned)
	require.NotNil(t, primary)
	require.Equal(t, "valet", primary.Legs[0].Service)
}

func TestSelectPlansRejectsPlansOverWalkingTimeLimit(t *testing.T) {
	plans := []Plan{
		{Legs: []PlanLeg{{Org: "A", Dst: "B", Service: "bus"}, {Org: "B", Dst: "C", Service: WalkService, Dept: 0, Arrv: 20}}},
		{Legs: []PlanLeg{{Org: "A", Dst: "D", Service: "bus"}, {Org: "D", Dst: "C", Service: WalkService, Dept: 0, Arrv: 5}}},
	}
	filter := Filter{WalkingTimeLimit: 10}
	primary, recovery, warned := SelectPlans(plans, "", filter)
	require.False(t, warned)
	require.NotNil(t, primary)
	require.Equal(t, "D", primary.Legs[0].Dst)
	require.Nil(t, recovery)
}

func TestSelectPlansSortsByWalkingTime(t *testing.T) {
	plans := []Plan{
		{Legs: []PlanLeg{{Org: "A", Dst: "B", Service: WalkService, Dept: 0, Arrv: 15}}},
		{Legs: []PlanLeg{{Org: "A", Dst: "C", Service: WalkService, Dept: 0, Arrv: 5}}},
	}
	filter := Filter{SortType: SortByWalkingTime}
	primary, recovery, _ := SelectPlans(plans, "", filter)
	require.Equal(t, "C", primary.Legs[0].Dst)
	require.NotNil(t, recovery)
	require.Equal(t, "B", recovery.Legs[0].Dst)
}

func TestBuildFallbackChainWalkingOnlyPrimaryHasNoFallback(t *testing.T) {
	primary := Plan{Legs: []PlanLeg{{Org: "A", Dst: "B", Service: WalkService}}}
	tasks := BuildFallbackChain(primary, nil, 100)
	require.Len(t, tasks, 1)
	require.Nil(t, tasks[0].Fallback)
}

// TestBuildFallbackChainMiddleLegSubstitution covers spec §4.4.3: the
// primary's mobility leg falls back to walking to the recovery plan's
// mobility origin, then the recovery's mobility leg, then its post-walk.
func TestBuildFallbackChainMiddleLegSubstitution(t *testing.T) {
	primary := Plan{Legs: []PlanLeg{
		{Org: "A", Dst: "stopA", Service: WalkService},
		{Org: "stopA", Dst: "stopB", Service: "shuttle"},
		{Org: "stopB", Dst: "Z", Service: WalkService},
	}}
	recovery := &Plan{Legs: []PlanLeg{
		{Org: "A", Dst: "stopC", Service: WalkService},
		{Org: "stopC", Dst: "stopD", Service: "valet"},
		{Org: "stopD", Dst: "Z", Service: WalkService},
	}}

	tasks := BuildFallbackChain(primary, recovery, 100)
	require.Len(t, tasks, 3)

	mobility := tasks[1]
	require.Equal(t, "shuttle", mobility.Service)
	require.Len(t, mobility.Fallback, 3)
	require.Equal(t, "stopA", mobility.Fallback[0].Org)
	require.Equal(t, "stopC", mobility.Fallback[0].Dst)
	require.Equal(t, "valet", mobility.Fallback[1].Service)
	require.Equal(t, "stopD", mobility.Fallback[2].Org)
	require.Equal(t, "Z", mobility.Fallback[2].Dst)
}
