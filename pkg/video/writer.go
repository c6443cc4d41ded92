package video

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-lens/pkg/debug"
	"gocv.io/x/gocv"
)

// ErrNoCodec is returned when none of the requested codecs can be opened.
var ErrNoCodec = errors.New("no supported video codec")

// Codec is a FourCC code plus the container it is written into.
type Codec struct {
	FourCC string
	Ext    string
	MIME   string
}

// DefaultCodecs lists codecs in preference order: H.264, then MPEG-4 Part 2,
// then Motion JPEG, which every OpenCV build can write.
var DefaultCodecs = []Codec{
	{FourCC: "avc1", Ext: ".mp4", MIME: "video/mp4"},
	{FourCC: "mp4v", Ext: ".mp4", MIME: "video/mp4"},
	{FourCC: "MJPG", Ext: ".avi", MIME: "video/x-msvideo"},
}

// Writer encodes RGBA frames into a temporary container file and returns the
// finished file's bytes.
type Writer struct {
	vw     *gocv.VideoWriter
	path   string
	codec  Codec
	width  int
	height int

	mu     sync.Mutex
	frames int
	done   bool
}

// NewWriter opens a writer with the first codec in codecs that the OpenCV
// build supports.
func NewWriter(width, height int, fps float64, codecs []Codec) (*Writer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(codecs) == 0 {
		codecs = DefaultCodecs
	}

	for _, c := range codecs {
		f, err := os.CreateTemp("", "golens-*"+c.Ext)
		if err != nil {
			return nil, fmt.Errorf("create temp file: %w", err)
		}
		path := f.Name()
		f.Close()

		vw, err := gocv.VideoWriterFile(path, c.FourCC, fps, width, height, true)
		if err != nil || !vw.IsOpened() {
			if vw != nil {
				vw.Close()
			}
			os.Remove(path)
			debug.Log("codec unavailable", "fourcc", c.FourCC, "error", err)
			continue
		}

		return &Writer{
			vw:     vw,
			path:   path,
			codec:  c,
			width:  width,
			height: height,
		}, nil
	}

	return nil, ErrNoCodec
}

// Codec returns the codec in use.
func (w *Writer) Codec() Codec {
	return w.codec
}

// MIMEType returns the container's media type.
func (w *Writer) MIMEType() string {
	return w.codec.MIME
}

// Frames returns how many frames have been written.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// WriteFrame appends one frame. img must match the writer's size.
func (w *Writer) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != w.width || b.Dy() != w.height {
		return fmt.Errorf("frame size %dx%d does not match writer %dx%d", b.Dx(), b.Dy(), w.width, w.height)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return errors.New("writer finished")
	}
	if err := w.vw.Write(mat); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	w.frames++
	return nil
}

// Finish closes the container and returns its contents. The temporary file
// is removed.
func (w *Writer) Finish() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil, errors.New("writer finished")
	}
	w.done = true

	if err := w.vw.Close(); err != nil {
		os.Remove(w.path)
		return nil, fmt.Errorf("close writer: %w", err)
	}
	data, err := os.ReadFile(w.path)
	os.Remove(w.path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return data, nil
}
