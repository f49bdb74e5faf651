package physics

const (
	DefaultGravity = -9.81

	DefaultBodyMass        = 1.0
	DefaultBodyHalfWidth   = 0.45
	DefaultBodyHalfHeight  = 0.5
	DefaultBodyHalfDepth   = 0.45
	MinimumResidualSpeed   = 1e-4
	CollisionAxisTolerance = 1e-9

	normalizeEpsilon = 1e-5
)
