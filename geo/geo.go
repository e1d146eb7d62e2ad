// Package geo holds the small amount of geometry the container needs:
// points, device transforms, colored clouds and the voxel grid used to merge
// clouds coming from several devices.
package geo

import "fmt"

type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Within reports whether min <= v < max on every axis.
func (v Vec3) Within(min, max Vec3) bool {
	return v.X >= min.X && v.X < max.X &&
		v.Y >= min.Y && v.Y < max.Y &&
		v.Z >= min.Z && v.Z < max.Z
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Mat4 is a 4x4 matrix stored row-major. Points are column vectors, so a
// rigid transform keeps its translation in elements 3, 7 and 11.
type Mat4 [16]float32

func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func Translation(t Vec3) Mat4 {
	m := Identity()
	m[3], m[7], m[11] = t.X, t.Y, t.Z
	return m
}

func (m Mat4) IsIdentity() bool {
	return m == Identity()
}

// Mul returns m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += m[row*4+k] * o[k*4+col]
			}
			r[row*4+col] = s
		}
	}
	return r
}

// MultiplyPoint applies m to the point p (w = 1).
func (m Mat4) MultiplyPoint(p Vec3) Vec3 {
	x := m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3]
	y := m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7]
	z := m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11]
	w := m[12]*p.X + m[13]*p.Y + m[14]*p.Z + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// ColoredCloud is a point cloud with one RGB color (components in [0,1])
// per vertex. An empty cloud is valid.
type ColoredCloud struct {
	Vertices []Vec3
	Colors   []Vec3
}

func NewColoredCloud(size int) ColoredCloud {
	return ColoredCloud{
		Vertices: make([]Vec3, size),
		Colors:   make([]Vec3, size),
	}
}

func (c *ColoredCloud) Len() int {
	return len(c.Vertices)
}

func (c *ColoredCloud) Empty() bool {
	return len(c.Vertices) == 0
}

func (c *ColoredCloud) HasColors() bool {
	return len(c.Colors) == len(c.Vertices) && len(c.Colors) > 0
}

func (c *ColoredCloud) Append(v, color Vec3) {
	c.Vertices = append(c.Vertices, v)
	c.Colors = append(c.Colors, color)
}

// Transformed returns a copy of the cloud with m applied to every vertex.
func (c *ColoredCloud) Transformed(m Mat4) ColoredCloud {
	out := ColoredCloud{
		Vertices: make([]Vec3, len(c.Vertices)),
		Colors:   make([]Vec3, len(c.Colors)),
	}
	for i, v := range c.Vertices {
		out.Vertices[i] = m.MultiplyPoint(v)
	}
	copy(out.Colors, c.Colors)
	return out
}
