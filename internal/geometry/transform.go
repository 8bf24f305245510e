package geometry

import (
	"fmt"
	"math"
)

// Matrix3 is a rotation matrix in row-vector form: p' = p * M
type Matrix3 [3][3]float64

// RotationMatrix builds the combined rotation (Z * Y * X) for angles in radians
func RotationMatrix(rx, ry, rz float64) Matrix3 {
	cosX, sinX := math.Cos(rx), math.Sin(rx)
	cosY, sinY := math.Cos(ry), math.Sin(ry)
	cosZ, sinZ := math.Cos(rz), math.Sin(rz)

	return Matrix3{
		{cosY * cosZ, cosY * sinZ, -sinY},
		{sinX*sinY*cosZ - cosX*sinZ, sinX*sinY*sinZ + cosX*cosZ, sinX * cosY},
		{cosX*sinY*cosZ + sinX*sinZ, cosX*sinY*sinZ - sinX*cosZ, cosX * cosY},
	}
}

// Apply transforms a point
func (m Matrix3) Apply(p Vec3) Vec3 {
	return Vec3{
		p.X*m[0][0] + p.Y*m[1][0] + p.Z*m[2][0],
		p.X*m[0][1] + p.Y*m[1][1] + p.Z*m[2][1],
		p.X*m[0][2] + p.Y*m[1][2] + p.Z*m[2][2],
	}
}

// BuildRotationTransform creates a 3MF transformation matrix string with rotation and translation.
// The transformation matrix format is: m11 m12 m13 m21 m22 m23 m31 m32 m33 tx ty tz
// Angles are in degrees, applied in the order Z, Y, X.
func BuildRotationTransform(rotX, rotY, rotZ, tx, ty, tz float64) string {
	m := RotationMatrix(rotX*math.Pi/180.0, rotY*math.Pi/180.0, rotZ*math.Pi/180.0)

	// Use %.8f for precision to avoid rounding errors
	return fmt.Sprintf("%.8f %.8f %.8f %.8f %.8f %.8f %.8f %.8f %.8f %.2f %.2f %.2f",
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
		tx, ty, tz)
}

// BuildTranslationTransform creates a simple translation transformation matrix (no rotation)
func BuildTranslationTransform(tx, ty, tz float64) string {
	return fmt.Sprintf("1 0 0 0 1 0 0 0 1 %.2f %.2f %.2f", tx, ty, tz)
}

// ItemTransform renders the display rotation and position of a mesh as a 3MF matrix
func ItemTransform(t Transform) string {
	if t.Rotation == (Vec3{}) {
		return BuildTranslationTransform(t.Position.X, t.Position.Y, t.Position.Z)
	}
	return BuildRotationTransform(
		t.Rotation.X*180/math.Pi, t.Rotation.Y*180/math.Pi, t.Rotation.Z*180/math.Pi,
		t.Position.X, t.Position.Y, t.Position.Z)
}

// Baked returns a copy with the display rotation and position applied to the
// vertices and the display transform reset. Scale is already part of the vertices.
func (m *Mesh) Baked() *Mesh {
	t := m.Transform
	if t.Rotation == (Vec3{}) && t.Position == (Vec3{}) {
		out := m.Clone()
		out.Transform = IdentityTransform()
		return out
	}

	rot := RotationMatrix(t.Rotation.X, t.Rotation.Y, t.Rotation.Z)
	out := m.MapVertices(func(v Vec3) Vec3 {
		return rot.Apply(v).Add(t.Position)
	})
	out.Transform = IdentityTransform()
	return out
}
