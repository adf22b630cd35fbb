package geo

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/mobility-cosim/platform/simproto"
)

// locationRow/edgeRow are the on-disk fixture shapes for operator-supplied
// network data: a stop roster and a distance matrix. This is NOT GTFS
// parsing (out of scope per spec §1) — it is the plain tabular location and
// duration data the on-demand/scheduled cores need to build a Network,
// loaded with gocsv the way the GTFS-library example uses it for its own
// (distinct, out-of-scope-here) tabular data.
type locationRow struct {
	LocationID string  `csv:"location_id"`
	Name       string  `csv:"name"`
	Lat        float64 `csv:"lat"`
	Lng        float64 `csv:"lng"`
}

type edgeRow struct {
	FromID  string  `csv:"from_id"`
	ToID    string  `csv:"to_id"`
	Minutes float64 `csv:"minutes"`
}

// LoadLocationsCSV populates a Network's location roster from a CSV reader
// with header "location_id,name,lat,lng".
func LoadLocationsCSV(n *Network, r io.Reader) error {
	var rows []*locationRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		n.AddLocation(simproto.Location{LocationID: row.LocationID, Lat: row.Lat, Lng: row.Lng})
	}
	return nil
}

// LoadEdgesCSV populates a Network's explicit duration matrix from a CSV
// reader with header "from_id,to_id,minutes". Edges are directional; supply
// both rows for a symmetric pair.
func LoadEdgesCSV(n *Network, r io.Reader) error {
	var rows []*edgeRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		n.AddEdge(row.FromID, row.ToID, row.Minutes, false)
	}
	return nil
}
