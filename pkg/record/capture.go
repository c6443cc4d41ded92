// Package record produces still captures and video recordings of the
// engine's output.
//
// Both read published frames through a Source and never touch the live
// output surface. The compositing rule is shared: background effects use
// the finished output frame; face effects draw the raw video and lay the
// overlay on top; with no effect only the video is used. The result is
// mirrored when the camera faces the user, so it matches the preview.
package record

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-lens/pkg/lens"
	"github.com/teslashibe/go-lens/pkg/surface"
	"github.com/teslashibe/go-lens/pkg/video"
	"golang.org/x/image/draw"
)

var (
	ErrNoFrame          = errors.New("no video frame available")
	ErrNotRecording     = errors.New("not recording")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNoCodec          = video.ErrNoCodec
)

// Facing is the camera facing mode
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// ParseFacing validates a facing mode name
func ParseFacing(s string) (Facing, error) {
	switch f := Facing(s); f {
	case FacingUser, FacingEnvironment:
		return f, nil
	}
	return "", fmt.Errorf("unknown facing mode %q", s)
}

// Mirrored reports whether output for this facing mode is flipped
// horizontally.
func (f Facing) Mirrored() bool {
	return f == FacingUser
}

// Snapshot is one published engine frame. Snapshots are immutable once
// published.
type Snapshot struct {
	Video  image.Image // Raw camera frame at native resolution
	Output *image.RGBA // Output surface: overlay for face effects, full composite for backgrounds
	Effect lens.ID
}

// Source provides the most recent published frame.
type Source interface {
	Latest() (Snapshot, bool)
}

// Compose builds the frame a capture or recording stores, at the video's
// native resolution.
func Compose(snap Snapshot, mirrored bool) (*image.RGBA, error) {
	if snap.Video == nil {
		return nil, ErrNoFrame
	}
	vb := snap.Video.Bounds()
	if vb.Empty() {
		return nil, ErrNoFrame
	}

	rect := image.Rect(0, 0, vb.Dx(), vb.Dy())
	out := image.NewRGBA(rect)

	switch {
	case snap.Effect.IsBackground():
		if snap.Output == nil {
			return nil, ErrNoFrame
		}
		draw.ApproxBiLinear.Scale(out, rect, snap.Output, snap.Output.Bounds(), draw.Src, nil)
	default:
		draw.Draw(out, rect, snap.Video, vb.Min, draw.Src)
		if snap.Effect != lens.None && snap.Output != nil {
			draw.ApproxBiLinear.Scale(out, rect, snap.Output, snap.Output.Bounds(), draw.Over, nil)
		}
	}

	if mirrored {
		return surface.Mirror(out), nil
	}
	return out, nil
}

// Still is an encoded capture
type Still struct {
	ID        string    `json:"id"`
	Data      []byte    `json:"-"`
	MIMEType  string    `json:"mime_type"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Effect    lens.ID   `json:"effect"`
	Mirrored  bool      `json:"mirrored"`
	CreatedAt time.Time `json:"created_at"`
}

// Capture composes the latest frame from src and encodes it as a JPEG.
func Capture(src Source, facing Facing, quality int) (*Still, error) {
	snap, ok := src.Latest()
	if !ok {
		return nil, ErrNoFrame
	}

	mirrored := facing.Mirrored()
	img, err := Compose(snap, mirrored)
	if err != nil {
		return nil, err
	}

	data, err := video.RGBToJPEG(img, quality)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	return &Still{
		ID:        uuid.NewString(),
		Data:      data,
		MIMEType:  "image/jpeg",
		Width:     img.Rect.Dx(),
		Height:    img.Rect.Dy(),
		Effect:    snap.Effect,
		Mirrored:  mirrored,
		CreatedAt: time.Now(),
	}, nil
}
