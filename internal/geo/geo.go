// Package geo provides great-circle distance and bearing primitives used by
// the graph builder, the snapper and the live tracker.
package geo

import (
	"fmt"
	"math"
)

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000.0

// Point is a geographic coordinate. Longitude first matches the GeoJSON
// ordering used by the road dataset.
type Point struct {
	Lon float64
	Lat float64
}

// String returns the point as "lon,lat" with six decimal places.
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat)
}

// Valid reports whether the point lies within the valid coordinate ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) {
		return false
	}
	return p.Lon >= -180 && p.Lon <= 180 && p.Lat >= -90 && p.Lat <= 90
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Distance returns the great-circle (haversine) distance between two points
// in meters. The road network is campus-scale, so no antimeridian handling.
func Distance(p, q Point) float64 {
	lat1 := radians(p.Lat)
	lat2 := radians(q.Lat)
	dLat := radians(q.Lat - p.Lat)
	dLon := radians(q.Lon - p.Lon)

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// Bearing returns the initial compass bearing from p toward q in degrees,
// normalized to [0, 360).
func Bearing(p, q Point) float64 {
	lat1 := radians(p.Lat)
	lat2 := radians(q.Lat)
	dLon := radians(q.Lon - p.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	b := degrees(math.Atan2(y, x))
	return math.Mod(b+360, 360)
}

// cardinals are the 8-wind compass labels, index = round(bearing/45) mod 8.
var cardinals = [8]string{
	"north", "northeast", "east", "southeast",
	"south", "southwest", "west", "northwest",
}

// Cardinal returns the 8-wind compass label for a bearing in degrees.
func Cardinal(bearing float64) string {
	idx := int(math.Round(math.Mod(bearing+360, 360)/45)) % 8
	return cardinals[idx]
}

// TurnAngle returns the signed angle between an incoming and an outgoing
// bearing in (-180, 180]. Positive angles turn right, negative turn left.
func TurnAngle(in, out float64) float64 {
	d := math.Mod(out-in+180, 360)
	if d < 0 {
		d += 360
	}
	d -= 180
	if d <= -180 {
		d += 360
	}
	return d
}
