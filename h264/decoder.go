// Package h264 turns a single encoded H.264 frame into a raster image.
//
// Decoding goes through OpenCV's FFmpeg-backed video capture, so it needs
// OpenCV with FFmpeg support installed on the host. Everything that only
// needs the capability, not the codec, should depend on the FrameDecoder
// interface so tests can substitute a fake.
package h264

import (
	"fmt"
	"image"
	"os"

	"github.com/KittyCAD/twenty-twenty/logging"

	"gocv.io/x/gocv"
)

// FrameDecoder is the narrow decode capability: an encoded H.264 frame plus
// its declared dimensions in, a raster image of exactly those dimensions out.
type FrameDecoder interface {
	Decode(frame []byte, width, height int) (image.Image, error)
}

// DecodeError reports an encoded frame that could not be turned into an
// image of the declared dimensions. It is always fatal to the assertion
// that triggered the decode.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding H.264 frame: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decoding H.264 frame: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder decodes H.264 frames with OpenCV. The zero value is ready to use;
// each Decode call acquires and fully releases its own decoder state.
type Decoder struct{}

// NewDecoder returns an OpenCV-backed frame decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses a single Annex B H.264 frame and returns it as an image.
//
// OpenCV's capture API only opens named inputs, so the frame is staged in a
// temporary file first. The temp file, the capture handle, and the frame
// matrix are all released before Decode returns, on every path.
func (d *Decoder) Decode(frame []byte, width, height int) (image.Image, error) {
	if len(frame) == 0 {
		return nil, &DecodeError{Reason: "empty frame buffer"}
	}

	// Stage the raw frame where the capture backend can demux it.
	tmp, err := os.CreateTemp("", "twenty-twenty-*.h264")
	if err != nil {
		return nil, &DecodeError{Reason: "staging frame to disk", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(frame); err != nil {
		tmp.Close()
		return nil, &DecodeError{Reason: "staging frame to disk", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &DecodeError{Reason: "staging frame to disk", Err: err}
	}

	capture, err := gocv.VideoCaptureFile(tmp.Name())
	if err != nil {
		return nil, &DecodeError{Reason: "opening video decoder", Err: err}
	}
	defer capture.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := capture.Read(&mat); !ok || mat.Empty() {
		return nil, &DecodeError{Reason: "buffer holds no decodable video frame"}
	}

	logging.Debugf("decoded H.264 frame: %dx%d, declared %dx%d",
		mat.Cols(), mat.Rows(), width, height)

	if mat.Cols() != width || mat.Rows() != height {
		return nil, &DecodeError{Reason: fmt.Sprintf(
			"decoded frame is %dx%d but caller declared %dx%d",
			mat.Cols(), mat.Rows(), width, height)}
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, &DecodeError{Reason: "converting decoded frame to image", Err: err}
	}
	return img, nil
}
