// Package geom provides the rigid-transform primitives used by the fusion
// graph: 3-vectors, unit quaternions and rotation+translation transforms.
//
// Conventions: quaternions are stored (X, Y, Z, W) with W the scalar part.
// Transform composition follows the parent-chain rule: (A.Mul(B)).Apply(p)
// equals A.Apply(B.Apply(p)), so a chain frame0→frame1→frame2 composes as
// T01.Mul(T12).
package geom

import "math"

// Vec3 is a 3-component vector (meters for translations).
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + u.
func (v Vec3) Add(u Vec3) Vec3 {
	return Vec3{v.X + u.X, v.Y + u.Y, v.Z + u.Z}
}

// Sub returns v - u.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{v.X - u.X, v.Y - u.Y, v.Z - u.Z}
}

// Scale returns s*v.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{s * v.X, s * v.Y, s * v.Z}
}

// Dot returns the dot product of v and u.
func (v Vec3) Dot(u Vec3) float64 {
	return v.X*u.X + v.Y*u.Y + v.Z*u.Z
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Quat is a rotation quaternion. Operations assume unit norm unless noted.
type Quat struct {
	X, Y, Z, W float64
}

// IdentityQuat returns the identity rotation.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// Mul returns the Hamilton product q*r (apply r first, then q).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Conjugate returns the quaternion conjugate, which is the inverse for
// unit quaternions.
func (q Quat) Conjugate() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Dot returns the 4-component dot product of q and r.
func (q Quat) Dot(r Quat) float64 {
	return q.X*r.X + q.Y*r.Y + q.Z*r.Z + q.W*r.W
}

// Norm returns the 4-component Euclidean norm of q.
func (q Quat) Norm() float64 {
	return math.Sqrt(q.Dot(q))
}

// Normalize returns q scaled to unit norm. A zero quaternion normalizes to
// the identity rotation.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 {
		return IdentityQuat()
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Neg returns -q. On the unit sphere q and -q encode the same rotation.
func (q Quat) Neg() Quat {
	return Quat{-q.X, -q.Y, -q.Z, -q.W}
}

// Rotate applies the rotation q to the vector v.
func (q Quat) Rotate(v Vec3) Vec3 {
	// q * (v, 0) * q⁻¹ expanded to avoid building intermediate quaternions.
	u := Vec3{q.X, q.Y, q.Z}
	uv := u.cross(v)
	uuv := u.cross(uv)
	return v.Add(uv.Scale(2 * q.W)).Add(uuv.Scale(2))
}

func (v Vec3) cross(u Vec3) Vec3 {
	return Vec3{
		v.Y*u.Z - v.Z*u.Y,
		v.Z*u.X - v.X*u.Z,
		v.X*u.Y - v.Y*u.X,
	}
}

// Slerp spherically interpolates from q toward r by fraction t in [0,1],
// following the shortest arc on the unit sphere. t=0 returns q, t=1 returns
// a representation of r.
func (q Quat) Slerp(r Quat, t float64) Quat {
	d := q.Dot(r)

	// Take the short way round the double cover.
	if d < 0 {
		r = r.Neg()
		d = -d
	}

	// Nearly parallel: fall back to normalized linear interpolation to avoid
	// dividing by a vanishing sin(theta).
	if d > 0.9995 {
		return Quat{
			X: q.X + t*(r.X-q.X),
			Y: q.Y + t*(r.Y-q.Y),
			Z: q.Z + t*(r.Z-q.Z),
			W: q.W + t*(r.W-q.W),
		}.Normalize()
	}

	theta := math.Acos(d)
	sinTheta := math.Sin(theta)
	a := math.Sin((1-t)*theta) / sinTheta
	b := math.Sin(t*theta) / sinTheta
	return Quat{
		X: a*q.X + b*r.X,
		Y: a*q.Y + b*r.Y,
		Z: a*q.Z + b*r.Z,
		W: a*q.W + b*r.W,
	}
}

// Transform is a rigid transform: rotate by Rotation, then translate by
// Origin.
type Transform struct {
	Rotation Quat
	Origin   Vec3
}

// IdentityTransform returns the identity transform.
func IdentityTransform() Transform {
	return Transform{Rotation: IdentityQuat()}
}

// Apply maps the point p through the transform.
func (t Transform) Apply(p Vec3) Vec3 {
	return t.Rotation.Rotate(p).Add(t.Origin)
}

// Mul composes two transforms: (t.Mul(u)).Apply(p) == t.Apply(u.Apply(p)).
func (t Transform) Mul(u Transform) Transform {
	return Transform{
		Rotation: t.Rotation.Mul(u.Rotation),
		Origin:   t.Rotation.Rotate(u.Origin).Add(t.Origin),
	}
}

// Inverse returns the transform mapping back from the destination frame.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Rotation: inv,
		Origin:   inv.Rotate(t.Origin).Scale(-1),
	}
}
