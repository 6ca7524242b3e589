package vision

import (
	"image"
)

// Locate returns the index of the first region whose polygon contains (x, y),
// boundary included. Regions are tested in index order, so the lowest index
// wins when polygons overlap. ok is false when no region contains the point.
func Locate(regions []Region, x, y int) (index int, ok bool) {
	p := image.Pt(x, y)
	for i, r := range regions {
		if r.Contains(p) {
			return i, true
		}
	}
	return -1, false
}

// Contains reports whether p lies inside the polygon or on its boundary.
func (r Region) Contains(p image.Point) bool {
	n := len(r)
	switch n {
	case 0:
		return false
	case 1:
		return r[0] == p
	}
	if !p.In(r.Bounds()) {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r[j], r[i]
		if onSegment(a, b, p) {
			return true
		}
		// Ray cast toward +x; half-open rule on y avoids double counting vertices.
		if (a.Y > p.Y) != (b.Y > p.Y) {
			// x coordinate of the edge at p.Y, compared without division.
			lhs := (p.X - a.X) * (b.Y - a.Y)
			rhs := (b.X - a.X) * (p.Y - a.Y)
			if b.Y > a.Y {
				if lhs < rhs {
					inside = !inside
				}
			} else if lhs > rhs {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment reports whether p lies on the closed segment ab.
func onSegment(a, b, p image.Point) bool {
	if cross(a, b, p) != 0 {
		return false
	}
	return p.X >= min(a.X, b.X) && p.X <= max(a.X, b.X) &&
		p.Y >= min(a.Y, b.Y) && p.Y <= max(a.Y, b.Y)
}

// cross is the z component of (b-a) x (p-a).
func cross(a, b, p image.Point) int {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}
