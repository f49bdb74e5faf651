package physics

// Space owns the static geometry and steps every attached body.
type Space struct {
	gravity Vec3
	blocks  BlockStore
	bodies  []*RigidBody
}

func NewSpace(blocks BlockStore, gravity Vec3) *Space {
	return &Space{gravity: gravity, blocks: blocks}
}

func (s *Space) Gravity() Vec3 {
	return s.gravity
}

func (s *Space) Attach(b *RigidBody) {
	if b == nil {
		return
	}
	for _, existing := range s.bodies {
		if existing == b {
			return
		}
	}
	s.bodies = append(s.bodies, b)
}

// Step advances every attached body by dt.
func (s *Space) Step(dt float64) {
	if dt <= 0 {
		return
	}
	for _, b := range s.bodies {
		b.integrate(dt, s.gravity, s.blocks)
	}
}

func (s *Space) CheckSphere(center Vec3, radius float64, mask LayerMask) bool {
	return OverlapSphere(s.blocks, center, radius, mask)
}
