package fusion

// Integrator estimates position by leaky double integration of linear
// acceleration. The leak pulls both velocity and position back towards zero
// so that sensor bias does not run away; the default factors are rough and
// have not been fitted to measured drift.
type Integrator struct {
	// AccelGain scales acceleration into a velocity step.
	AccelGain float32
	// VelocityGain scales velocity into a position step.
	VelocityGain float32
	// VelocityLeak divides velocity after every update.
	VelocityLeak float32
	// PositionLeak divides position after every update.
	PositionLeak float32

	Velocity Vec3
	Position Vec3
}

// Default integrator factors.
const (
	DefaultAccelGain    = 0.1
	DefaultVelocityGain = 0.01
	DefaultVelocityLeak = 1.05
	DefaultPositionLeak = 1.00005
)

// NewIntegrator returns an integrator at rest using the default factors.
func NewIntegrator() *Integrator {
	return &Integrator{
		AccelGain:    DefaultAccelGain,
		VelocityGain: DefaultVelocityGain,
		VelocityLeak: DefaultVelocityLeak,
		PositionLeak: DefaultPositionLeak,
	}
}

// Update integrates one acceleration sample taken in the sensor frame while
// the sensor had orientation q.
func (in *Integrator) Update(q Quat, accel Vec3) {
	a := q.Normalize().Conjugate().Rotate(accel)

	for i := range a {
		in.Velocity[i] += a[i] * in.AccelGain
		if in.VelocityLeak != 0 {
			in.Velocity[i] /= in.VelocityLeak
		}

		in.Position[i] += in.Velocity[i] * in.VelocityGain
		if in.PositionLeak != 0 {
			in.Position[i] /= in.PositionLeak
		}
	}
}

// Reset returns the estimate to rest.
func (in *Integrator) Reset() {
	in.Velocity = Vec3{}
	in.Position = Vec3{}
}
