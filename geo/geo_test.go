package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobility-cosim/platform/simproto"
)

func TestHaversineKmSamePoint(t *testing.T) {
	loc := simproto.Location{LocationID: "A", Lat: 28.7041, Lng: 77.1025}
	require.Equal(t, 0.0, HaversineKm(loc, loc))
}

func TestHaversineKmKnownDistance(t *testing.T) {
	connaught := simproto.Location{LocationID: "CP", Lat: 28.6315, Lng: 77.2167}
	igi := simproto.Location{LocationID: "IGI", Lat: 28.5562, Lng: 77.0889}
	got := HaversineKm(connaught, igi)
	require.InDelta(t, 17.0, got, 3.0)
}

func TestNetworkDurationSameIDIsZero(t *testing.T) {
	n := NewNetwork(30, nil)
	d, err := n.Duration("stop1", "stop1")
	require.NoError(t, err)
	require.Equal(t, 0.0, d)
}

func TestNetworkDurationExplicitEdgeWins(t *testing.T) {
	n := NewNetwork(30, nil)
	n.AddLocation(simproto.Location{LocationID: "stop1", Lat: 0, Lng: 0})
	n.AddLocation(simproto.Location{LocationID: "stop2", Lat: 0, Lng: 1})
	n.AddEdge("stop1", "stop2", 15, true)

	d, err := n.Duration("stop1", "stop2")
	require.NoError(t, err)
	require.Equal(t, 15.0, d)

	d, err = n.Duration("stop2", "stop1")
	require.NoError(t, err)
	require.Equal(t, 15.0, d)
}

func TestNetworkDurationFallsBackToHaversineAndMemoizes(t *testing.T) {
	n := NewNetwork(60, nil)
	n.AddLocation(simproto.Location{LocationID: "a", Lat: 0, Lng: 0})
	n.AddLocation(simproto.Location{LocationID: "b", Lat: 0, Lng: 1})

	d1, err := n.Duration("a", "b")
	require.NoError(t, err)
	require.Greater(t, d1, 0.0)

	d2, err := n.Duration("a", "b")
	require.NoError(t, err)
	require.Equal(t, d1, d2, "memoized lookup must return identical value")
}

func TestNetworkDurationUnknownLocationErrors(t *testing.T) {
	n := NewNetwork(30, nil)
	_, err := n.Duration("ghost-a", "ghost-b")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "no edge or location data"))
}

func TestLoadLocationsAndEdgesCSV(t *testing.T) {
	n := NewNetwork(30, nil)
	locCSV := "location_id,name,lat,lng\nstop1,First,0,0\nstop2,Second,0,1\n"
	require.NoError(t, LoadLocationsCSV(n, strings.NewReader(locCSV)))

	edgeCSV := "from_id,to_id,minutes\nstop1,stop2,12\nstop2,stop1,12\n"
	require.NoError(t, LoadEdgesCSV(n, strings.NewReader(edgeCSV)))

	d, err := n.Duration("stop1", "stop2")
	require.NoError(t, err)
	require.Equal(t, 12.0, d)
}
