package physics

import "math"

// OverlapSphere reports whether a sphere touches any block whose layer is
// in mask. Touching counts as overlapping so a sphere resting exactly on a
// block top hits it.
func OverlapSphere(store BlockStore, center Vec3, radius float64, mask LayerMask) bool {
	if store == nil || radius < 0 {
		return false
	}
	minX := int(math.Floor(center.X - radius))
	maxX := int(math.Floor(center.X + radius))
	minY := int(math.Floor(center.Y - radius))
	maxY := int(math.Floor(center.Y + radius))
	minZ := int(math.Floor(center.Z - radius))
	maxZ := int(math.Floor(center.Z + radius))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			for z := minZ; z <= maxZ; z++ {
				if !mask.Has(store.LayerAt(x, y, z)) {
					continue
				}
				if blockBox(x, y, z).IntersectsSphere(center, radius) {
					return true
				}
			}
		}
	}
	return false
}
