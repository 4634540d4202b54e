package voxel

import "fmt"

type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

var (
	North = Vec3i{Z: -1}
	South = Vec3i{Z: 1}
	East  = Vec3i{X: 1}
	West  = Vec3i{X: -1}
	Up    = Vec3i{Y: 1}
	Down  = Vec3i{Y: -1}
)

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

func (v Vec3i) Above(n int) Vec3i { return Vec3i{X: v.X, Y: v.Y + n, Z: v.Z} }
func (v Vec3i) Below(n int) Vec3i { return Vec3i{X: v.X, Y: v.Y - n, Z: v.Z} }

// SameColumn reports whether both positions share x and z.
func (v Vec3i) SameColumn(o Vec3i) bool { return v.X == o.X && v.Z == o.Z }

func (v Vec3i) Array() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) String() string { return fmt.Sprintf("[%d,%d,%d]", v.X, v.Y, v.Z) }

func ManhattanDistance(a, b Vec3i) int {
	return AbsInt(a.X-b.X) + AbsInt(a.Y-b.Y) + AbsInt(a.Z-b.Z)
}

// Less orders positions by y, then z, then x.
func Less(a, b Vec3i) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	if a.Z != b.Z {
		return a.Z < b.Z
	}
	return a.X < b.X
}

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
