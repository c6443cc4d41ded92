package tracking

import (
	"math"

	"github.com/teslashibe/go-lens/pkg/landmark"
)

// Face is one tracked face slot: smoothed pixel landmarks plus the feature
// bundle derived from them. Lenses read a Face and never modify it.
type Face struct {
	Points landmark.Set // Smoothed absolute-pixel landmarks

	FaceScale   float64 // EyeDistance / calibration, floored
	Roll        float64 // Head tilt from the outer eye-corner line (radians)
	EyeDistance float64 // Outer eye-corner distance (px)
	TempleSpan  float64 // Temple-to-temple distance (px)

	Forehead    landmark.Point
	Chin        landmark.Point
	NoseTip     landmark.Point
	Center      landmark.Point // Between-eyes midpoint
	LeftTemple  landmark.Point
	RightTemple landmark.Point

	LeftEyeCorner  landmark.Point
	RightEyeCorner landmark.Point
	LeftEye        landmark.Point // Iris centre, or inner eye corner on unrefined meshes
	RightEye       landmark.Point

	MouthLeft   landmark.Point
	MouthRight  landmark.Point
	UpperLip    landmark.Point
	LowerLip    landmark.Point
	MouthCenter landmark.Point

	MouthOpen  bool
	LeftBlink  bool
	RightBlink bool
}

// Extract derives the feature bundle for a smoothed landmark set.
// points must hold at least landmark.MeshSize entries.
func Extract(points landmark.Set, cfg Config) Face {
	sp := func(i int) landmark.Point { return points[i] }

	f := Face{
		Points:         points,
		Forehead:       sp(landmark.Forehead),
		Chin:           sp(landmark.Chin),
		NoseTip:        sp(landmark.NoseTip),
		Center:         sp(landmark.BetweenEyes),
		LeftTemple:     sp(landmark.LeftTemple),
		RightTemple:    sp(landmark.RightTemple),
		LeftEyeCorner:  sp(landmark.LeftEyeOuter),
		RightEyeCorner: sp(landmark.RightEyeOuter),
		LeftEye:        sp(landmark.LeftEyeInner),
		RightEye:       sp(landmark.RightEyeInner),
		MouthLeft:      sp(landmark.MouthLeft),
		MouthRight:     sp(landmark.MouthRight),
		UpperLip:       sp(landmark.UpperLip),
		LowerLip:       sp(landmark.LowerLip),
	}
	if len(points) > landmark.LeftIris {
		f.LeftEye = sp(landmark.LeftIris)
	}
	if len(points) > landmark.RightIris {
		f.RightEye = sp(landmark.RightIris)
	}

	f.EyeDistance = landmark.Distance(f.LeftEyeCorner, f.RightEyeCorner)
	f.FaceScale = FaceScale(f.EyeDistance, cfg)
	f.TempleSpan = landmark.Distance(f.LeftTemple, f.RightTemple)
	f.Roll = math.Atan2(
		f.RightEyeCorner.Y-f.LeftEyeCorner.Y,
		f.RightEyeCorner.X-f.LeftEyeCorner.X,
	)

	mouthH := landmark.Distance(f.UpperLip, f.LowerLip)
	mouthW := landmark.Distance(f.MouthLeft, f.MouthRight)
	f.MouthOpen = mouthH/math.Max(mouthW, 1) > cfg.MouthOpenRatio
	f.MouthCenter = landmark.Point{
		X: (f.MouthLeft.X + f.MouthRight.X) / 2,
		Y: (f.UpperLip.Y + f.LowerLip.Y) / 2,
	}

	f.LeftBlink = eyeAspectRatio(points, landmark.LeftEyeTop, landmark.LeftEyeBottom,
		landmark.LeftEyeOuter, landmark.LeftEyeInner) < cfg.BlinkRatio
	f.RightBlink = eyeAspectRatio(points, landmark.RightEyeTop, landmark.RightEyeBottom,
		landmark.RightEyeInner, landmark.RightEyeOuter) < cfg.BlinkRatio

	return f
}

// FaceScale normalizes an outer eye-corner distance against the calibration
// distance. The result never drops below cfg.MinFaceScale.
func FaceScale(eyeDistance float64, cfg Config) float64 {
	calibration := cfg.EyeCalibration
	if calibration <= 0 {
		calibration = DefaultConfig().EyeCalibration
	}
	floor := cfg.MinFaceScale
	if floor <= 0 {
		floor = DefaultConfig().MinFaceScale
	}
	return math.Max(eyeDistance/calibration, floor)
}

// eyeAspectRatio is vertical eyelid distance over horizontal corner distance
func eyeAspectRatio(points landmark.Set, top, bottom, left, right int) float64 {
	v := landmark.Distance(points[top], points[bottom])
	h := landmark.Distance(points[left], points[right])
	return v / math.Max(h, 1)
}
