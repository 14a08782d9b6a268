package radio

import (
	"errors"
	"sort"
)

// RSSIPoint maps one raw RSSI reading to input power.
type RSSIPoint struct {
	RSSI uint8
	DBm  float64
}

// RSSITable converts raw RSSI readings to dBm by linear interpolation
// between the nearest points, extrapolating from the two outermost points
// at either end.
type RSSITable struct {
	points []RSSIPoint
}

// NewRSSITable sorts points by RSSI. At least two distinct points are
// required.
func NewRSSITable(points []RSSIPoint) (*RSSITable, error) {
	sorted := append([]RSSIPoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RSSI < sorted[j].RSSI })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].RSSI == sorted[i-1].RSSI {
			return nil, errors.New("rssi table: duplicate rssi point")
		}
	}
	if len(sorted) < 2 {
		return nil, errors.New("rssi table: need at least two points")
	}
	return &RSSITable{points: sorted}, nil
}

// DBm returns the input power for a raw reading.
func (t *RSSITable) DBm(rssi uint8) float64 {
	n := len(t.points)
	idx := sort.Search(n, func(i int) bool { return t.points[i].RSSI >= rssi })
	if idx < n && t.points[idx].RSSI == rssi {
		return t.points[idx].DBm
	}
	var p0, p1 RSSIPoint
	switch {
	case idx >= n:
		p0, p1 = t.points[n-2], t.points[n-1]
	case idx == 0:
		p0, p1 = t.points[0], t.points[1]
	default:
		p0, p1 = t.points[idx-1], t.points[idx]
	}
	m := (p1.DBm - p0.DBm) / (float64(p1.RSSI) - float64(p0.RSSI))
	b := p1.DBm - m*float64(p1.RSSI)
	return m*float64(rssi) + b
}
