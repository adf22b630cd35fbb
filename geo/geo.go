// Package geo provides the location/network-duration abstraction the
// on-demand and scheduled cores route against (spec §3's Location, §4.2.2's
// Network.duration). All distance calculations use the Haversine formula on
// WGS-84 coordinates, the way the ride-pooling example's pkg/geo does — this
// package generalizes that single point-to-point estimate into the network
// duration lookup the VRP solver and reservation pipeline need.
package geo

import (
	"fmt"
	"math"
	"sync"

	"github.com/mobility-cosim/platform/simproto"
)

const (
	// EarthRadiusKm is the mean radius of Earth in kilometers.
	EarthRadiusKm = 6371.0

	// DefaultWalkingSpeedMPerMin is the default walking pace (spec §6: 80 m/min).
	DefaultWalkingSpeedMPerMin = 80.0
)

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(a, b simproto.Location) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLng*sinLng
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func degToRad(deg float64) float64 { return deg * (math.Pi / 180.0) }

// DurationCache memoizes (origin,destination) -> minutes lookups. The
// default implementation is an in-process sync.Map (used by tests and local
// runs); the ondemand module, when configured with a Redis address, instead
// get RedisDurationCache (see cache_redis.go), grounded on the ride-pooling
// and logistics-platform examples' shared use of go-redis as a service-local
// cache for repeated lookups.
type DurationCache interface {
	Get(key string) (float64, bool)
	Set(key string, minutes float64)
}

// MemoryCache is the default, zero-configuration DurationCache.
type MemoryCache struct {
	m sync.Map
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

func (c *MemoryCache) Get(key string) (float64, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

func (c *MemoryCache) Set(key string, minutes float64) { c.m.Store(key, minutes) }

func cacheKey(a, b string) string { return a + "->" + b }

// Network answers travel-duration queries between locations by id,
// mirroring the original implementation's Network.duration (spec §4.2.2).
// Explicit edges (loaded from a distance matrix fixture) take precedence;
// when no edge is recorded for a pair, duration falls back to a
// Haversine-based estimate at a configured average speed, memoized through
// a DurationCache.
type Network struct {
	locations map[string]simproto.Location
	edges     map[string]float64 // cacheKey(a,b) -> minutes, explicit fixture data
	cache     DurationCache
	avgSpeed  float64 // km/h, used for the Haversine fallback
}

// NewNetwork constructs an empty network. avgSpeedKmph bounds the Haversine
// fallback speed; pass 0 to use a sensible city-driving default.
func NewNetwork(avgSpeedKmph float64, cache DurationCache) *Network {
	if avgSpeedKmph <= 0 {
		avgSpeedKmph = 30.0
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Network{
		locations: make(map[string]simproto.Location),
		edges:     make(map[string]float64),
		cache:     cache,
		avgSpeed:  avgSpeedKmph,
	}
}

// AddLocation registers a location by id so Duration can resolve ids it
// hasn't seen an explicit edge for.
func (n *Network) AddLocation(loc simproto.Location) {
	n.locations[loc.LocationID] = loc
}

// Location returns a registered location by id.
func (n *Network) Location(id string) (simproto.Location, bool) {
	l, ok := n.locations[id]
	return l, ok
}

// AddEdge records an explicit travel duration (minutes) between two
// location ids. withRev also records the reverse direction at the same
// duration, matching symmetric fixtures.
func (n *Network) AddEdge(a, b string, minutes float64, withRev bool) {
	n.edges[cacheKey(a, b)] = minutes
	if withRev {
		n.edges[cacheKey(b, a)] = minutes
	}
}

// Duration returns the travel time in minutes from a to b. Same-id pairs
// are zero duration, matching the original Network.duration behavior.
func (n *Network) Duration(a, b string) (float64, error) {
	if a == b {
		return 0, nil
	}
	if d, ok := n.edges[cacheKey(a, b)]; ok {
		return d, nil
	}
	key := cacheKey(a, b)
	if d, ok := n.cache.Get(key); ok {
		return d, nil
	}
	locA, okA := n.locations[a]
	locB, okB := n.locations[b]
	if !okA || !okB {
		return 0, fmt.Errorf("geo: no edge or location data for %s -> %s", a, b)
	}
	km := HaversineKm(locA, locB)
	minutes := km / n.avgSpeed * 60.0
	n.cache.Set(key, minutes)
	return minutes, nil
}

// WalkingMinutes estimates walking duration between two locations at the
// configured (or default) walking speed, in meters/minute (spec §6).
func WalkingMinutes(a, b simproto.Location, speedMPerMin float64) float64 {
	if speedMPerMin <= 0 {
		speedMPerMin = DefaultWalkingSpeedMPerMin
	}
	meters := HaversineKm(a, b) * 1000.0
	return meters / speedMPerMin
}
