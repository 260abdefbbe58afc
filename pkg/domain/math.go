package domain

import "math"

// Vec2 is a 2D vector. Used for editor positions and 2D blend spaces.
type Vec2 [2]float32

// Vec3 is a 3D vector. Blend-space points are always stored as Vec3; unused
// dimensions stay zero.
type Vec3 [3]float32

// Quat is a rotation quaternion stored as x, y, z, w.
type Quat [4]float32

// IdentityQuat returns the identity rotation.
func IdentityQuat() Quat {
	return Quat{0, 0, 0, 1}
}

func (v Vec2) Sub(o Vec2) Vec2            { return Vec2{v[0] - o[0], v[1] - o[1]} }
func (v Vec2) Dot(o Vec2) float32         { return v[0]*o[0] + v[1]*o[1] }
func (v Vec2) Cross(o Vec2) float32       { return v[0]*o[1] - v[1]*o[0] }
func (v Vec2) LengthSqr() float32         { return v.Dot(v) }
func (v Vec2) Length() float32            { return float32(math.Sqrt(float64(v.LengthSqr()))) }
func (v Vec2) IsZero() bool               { return v[0] == 0 && v[1] == 0 }
func (v Vec2) DistanceSqr(o Vec2) float32 { return v.Sub(o).LengthSqr() }

// Angle returns the polar angle of v in degrees, in [0, 360).
func (v Vec2) Angle() float32 {
	return WrapAngle(float32(math.Atan2(float64(v[1]), float64(v[0])) * 180 / math.Pi))
}

func (v Vec3) Add(o Vec3) Vec3            { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3            { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Scale(s float32) Vec3       { return Vec3{v[0] * s, v[1] * s, v[2] * s} }
func (v Vec3) Mul(o Vec3) Vec3            { return Vec3{v[0] * o[0], v[1] * o[1], v[2] * o[2]} }
func (v Vec3) Dot(o Vec3) float32         { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }
func (v Vec3) LengthSqr() float32         { return v.Dot(v) }
func (v Vec3) DistanceSqr(o Vec3) float32 { return v.Sub(o).LengthSqr() }
func (v Vec3) XY() Vec2                   { return Vec2{v[0], v[1]} }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Lerp interpolates linearly between v and o.
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return Vec3{
		v[0] + (o[0]-v[0])*t,
		v[1] + (o[1]-v[1])*t,
		v[2] + (o[2]-v[2])*t,
	}
}

// Dot returns the 4D dot product of two quaternions.
func (q Quat) Dot(r Quat) float32 {
	return q[0]*r[0] + q[1]*r[1] + q[2]*r[2] + q[3]*r[3]
}

// Mul returns the Hamilton product q*r (apply r, then q).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		q[3]*r[0] + q[0]*r[3] + q[1]*r[2] - q[2]*r[1],
		q[3]*r[1] - q[0]*r[2] + q[1]*r[3] + q[2]*r[0],
		q[3]*r[2] + q[0]*r[1] - q[1]*r[0] + q[2]*r[3],
		q[3]*r[3] - q[0]*r[0] - q[1]*r[1] - q[2]*r[2],
	}
}

// Conjugate returns the inverse of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{-q[0], -q[1], -q[2], q[3]}
}

// Normalize returns q scaled to unit length. A zero quaternion becomes identity.
func (q Quat) Normalize() Quat {
	l := float32(math.Sqrt(float64(q.Dot(q))))
	if l == 0 {
		return IdentityQuat()
	}
	inv := 1 / l
	return Quat{q[0] * inv, q[1] * inv, q[2] * inv, q[3] * inv}
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q[0], q[1], q[2]}
	s := q[3]
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(s)).Add(u.Cross(t))
}

// Slerp interpolates along the shortest arc between q and r.
func (q Quat) Slerp(r Quat, t float32) Quat {
	if t <= 0 {
		return q
	}
	if t >= 1 {
		return r
	}

	cos := q.Dot(r)
	if cos < 0 {
		cos = -cos
		r = Quat{-r[0], -r[1], -r[2], -r[3]}
	}

	var s0, s1 float32
	if 1-cos > 1e-6 {
		omega := math.Acos(float64(cos))
		sin := math.Sin(omega)
		s0 = float32(math.Sin((1-float64(t))*omega) / sin)
		s1 = float32(math.Sin(float64(t)*omega) / sin)
	} else {
		// Nearly parallel: nlerp.
		s0 = 1 - t
		s1 = t
	}

	return Quat{
		s0*q[0] + s1*r[0],
		s0*q[1] + s1*r[1],
		s0*q[2] + s1*r[2],
		s0*q[3] + s1*r[3],
	}.Normalize()
}

// QuatFromAxisAngle builds a rotation of deg degrees around a unit axis.
func QuatFromAxisAngle(axis Vec3, deg float32) Quat {
	half := float64(deg) * math.Pi / 360
	s := float32(math.Sin(half))
	return Quat{axis[0] * s, axis[1] * s, axis[2] * s, float32(math.Cos(half))}
}

// WrapAngle maps deg into [0, 360).
func WrapAngle(deg float32) float32 {
	a := float32(math.Mod(float64(deg), 360))
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// AngleDelta returns the signed shortest-arc difference b-a in (-180, 180].
func AngleDelta(a, b float32) float32 {
	d := WrapAngle(b - a)
	if d > 180 {
		d -= 360
	}
	return d
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
