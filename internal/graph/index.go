package graph

import (
	"math"
	"sort"
)

// indexCellSize is the grid cell edge in degrees, roughly 275m of latitude.
// Coarse on purpose: the index only pre-filters snap candidates, the exact
// point-to-segment projection decides.
const indexCellSize = 0.0025

type cellKey struct {
	x, y int
}

// cellIndex is a uniform grid over segment bounding boxes. Each segment is
// registered in every cell its bounding box overlaps, so a box query around a
// point can never miss a segment within the query radius.
type cellIndex struct {
	cells map[cellKey][]int
}

func newCellIndex(segments []Segment) *cellIndex {
	idx := &cellIndex{cells: make(map[cellKey][]int)}
	for i, s := range segments {
		minX := cellOf(math.Min(s.A.Lon, s.B.Lon))
		maxX := cellOf(math.Max(s.A.Lon, s.B.Lon))
		minY := cellOf(math.Min(s.A.Lat, s.B.Lat))
		maxY := cellOf(math.Max(s.A.Lat, s.B.Lat))
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				k := cellKey{x, y}
				idx.cells[k] = append(idx.cells[k], i)
			}
		}
	}
	return idx
}

func cellOf(deg float64) int {
	return int(math.Floor(deg / indexCellSize))
}

// query returns the indices of all segments whose bounding box overlaps a
// box of the given per-axis radii (in degrees) around the point, in ascending
// order so ties downstream break on the first-encountered segment.
func (idx *cellIndex) query(lon, lat, lonRadiusDeg, latRadiusDeg float64) []int {
	minX := cellOf(lon - lonRadiusDeg)
	maxX := cellOf(lon + lonRadiusDeg)
	minY := cellOf(lat - latRadiusDeg)
	maxY := cellOf(lat + latRadiusDeg)

	seen := make(map[int]struct{})
	var out []int
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for _, si := range idx.cells[cellKey{x, y}] {
				if _, dup := seen[si]; dup {
					continue
				}
				seen[si] = struct{}{}
				out = append(out, si)
			}
		}
	}
	sort.Ints(out)
	return out
}
