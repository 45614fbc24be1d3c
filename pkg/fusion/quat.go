// Package fusion turns sensor orientation and acceleration into the values
// carried by a telemetry frame.
package fusion

import (
	"github.com/chewxy/math32"
)

// RadToDeg converts radians to degrees.
const RadToDeg = 180 / math32.Pi

// Vec3 is a 3-vector.
type Vec3 [3]float32

// Quat is a rotation quaternion (W is the real part).
type Quat struct {
	W, X, Y, Z float32
}

// Identity is the zero rotation.
var Identity = Quat{W: 1}

// Euler are Tait-Bryan angles for the Z-Y-X (yaw, pitch, roll) sequence.
type Euler struct {
	Roll, Pitch, Yaw float32
}

// Norm returns the quaternion length.
func (q Quat) Norm() float32 {
	return math32.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize returns q scaled to unit length. A zero quaternion yields
// Identity.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 {
		return Identity
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{q.W, -q.X, -q.Y, -q.Z}
}

// Mul returns the Hamilton product q*r.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Rotate applies the rotation q to v (q*v*q').
func (q Quat) Rotate(v Vec3) Vec3 {
	p := Quat{0, v[0], v[1], v[2]}
	r := q.Mul(p).Mul(q.Conjugate())
	return Vec3{r.X, r.Y, r.Z}
}

// Euler decomposes q into roll, pitch and yaw in radians. Roll and yaw are
// in [-pi, pi], pitch in [-pi/2, pi/2]. q is normalized first.
func (q Quat) Euler() Euler {
	q = q.Normalize()
	w, x, y, z := q.W, q.X, q.Y, q.Z

	roll := math32.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sinp := 2 * (w*y - z*x)
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}
	pitch := math32.Asin(sinp)

	yaw := math32.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return Euler{Roll: roll, Pitch: pitch, Yaw: yaw}
}

// Degrees returns the angles converted to degrees in frame order.
func (e Euler) Degrees() [3]float32 {
	return [3]float32{e.Roll * RadToDeg, e.Pitch * RadToDeg, e.Yaw * RadToDeg}
}

// FromEuler builds a unit quaternion from roll, pitch and yaw in radians.
func FromEuler(roll, pitch, yaw float32) Quat {
	sr, cr := math32.Sin(roll/2), math32.Cos(roll/2)
	sp, cp := math32.Sin(pitch/2), math32.Cos(pitch/2)
	sy, cy := math32.Sin(yaw/2), math32.Cos(yaw/2)
	return Quat{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}
