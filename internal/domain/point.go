package domain

import (
	"encoding/json"
	"fmt"
)

// Immutable geographic point (latitude, longitude in WGS84 degrees).
type Point struct {
	Lat float64
	Lon float64
}

// Return the point as [lon, lat] for external API compatibility.
func (p Point) ToList() []float64 { return []float64{p.Lon, p.Lat} }

func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToList())
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("point must be a [lon, lat] array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("point must have exactly 2 coordinates, got %d", len(pair))
	}
	p.Lon, p.Lat = pair[0], pair[1]
	return nil
}
