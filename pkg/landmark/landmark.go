// Package landmark defines face-mesh landmark points and the named indices used by the lenses.
package landmark

import "math"

// Face mesh indices. The layout follows the 468-point canonical face mesh;
// refined models append ten iris points (468-477).
const (
	Forehead       = 10
	Chin           = 152
	NoseTip        = 4
	BetweenEyes    = 168
	LeftTemple     = 234
	RightTemple    = 454
	LeftEyeOuter   = 33
	LeftEyeInner   = 133
	RightEyeInner  = 362
	RightEyeOuter  = 263
	LeftEyeTop     = 159
	LeftEyeBottom  = 145
	RightEyeTop    = 386
	RightEyeBottom = 374
	MouthLeft      = 61
	MouthRight     = 291
	UpperLip       = 13
	LowerLip       = 14
	LeftIris       = 468
	RightIris      = 473

	// MeshSize is the number of points in an unrefined face mesh.
	MeshSize = 468
	// RefinedMeshSize is the number of points when iris refinement is enabled.
	RefinedMeshSize = 478
)

// Point is a single landmark. X and Y are either normalized [0,1] frame
// coordinates or absolute pixels depending on where it sits in the pipeline;
// Z is relative depth and is never scaled.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Set is the ordered landmark sequence for one detected face.
type Set []Point

// Pt is shorthand for a 2-D point with zero depth.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the 2-D Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{
		X: (a.X + b.X) / 2,
		Y: (a.Y + b.Y) / 2,
		Z: (a.Z + b.Z) / 2,
	}
}

// Valid reports whether the set carries a full face mesh.
func (s Set) Valid() bool {
	return len(s) >= MeshSize
}

// Refined reports whether the set carries iris points.
func (s Set) Refined() bool {
	return len(s) > RightIris
}

// ToPixels converts a normalized set into absolute pixel coordinates for a
// width x height frame. Depth is copied unchanged.
func (s Set) ToPixels(width, height int) Set {
	w, h := float64(width), float64(height)
	out := make(Set, len(s))
	for i, p := range s {
		out[i] = Point{X: p.X * w, Y: p.Y * h, Z: p.Z}
	}
	return out
}

// Clone returns a copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	copy(out, s)
	return out
}
