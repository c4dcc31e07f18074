package geo

import "math"

// ClosestOnSegment returns the point on segment a-b closest to p, together
// with the fraction along the segment at which it lies (0 at a, 1 at b).
//
// The projection runs in a local equirectangular plane with longitudes scaled
// by cos(lat), which is accurate to well under a meter at campus scale. The
// distance to the returned point should be measured with Distance.
func ClosestOnSegment(p, a, b Point) (Point, float64) {
	scale := math.Cos(radians((a.Lat + b.Lat) / 2))

	ax := a.Lon * scale
	bx := b.Lon * scale
	px := p.Lon * scale

	dx := bx - ax
	dy := b.Lat - a.Lat

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		// Degenerate segment.
		return a, 0
	}

	t := ((px-ax)*dx + (p.Lat-a.Lat)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	return Interpolate(a, b, t), t
}

// Interpolate returns the point a fraction t of the way from a to b.
func Interpolate(a, b Point, t float64) Point {
	return Point{
		Lon: a.Lon + (b.Lon-a.Lon)*t,
		Lat: a.Lat + (b.Lat-a.Lat)*t,
	}
}
