package twentytwenty

import (
	"image"

	"github.com/KittyCAD/twenty-twenty/h264"
	"github.com/KittyCAD/twenty-twenty/store"
)

// TestingT is the slice of testing.TB the assertion helpers need.
// *testing.T and *testing.B both satisfy it.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

// frameDecoder decodes H.264 input for the frame assertions. Package tests
// swap in a fake so the comparison pipeline runs without OpenCV.
var frameDecoder h264.FrameDecoder = h264.NewDecoder()

// AssertImage compares actual against the reference image at path and fails
// t if the similarity score is below minScore. The reference lifecycle —
// overwrite, artifact storage — follows the TWENTY_TWENTY environment
// variable; see the package documentation.
func AssertImage(t TestingT, path string, actual image.Image, minScore float64) {
	t.Helper()
	if _, err := CompareImage(path, actual, minScore); err != nil {
		t.Fatalf("twenty-twenty: %v", err)
	}
}

// AssertH264Frame decodes a single H.264 frame of the declared dimensions
// and compares it against the reference image at path, failing t if the
// similarity score is below minScore. The reference is a PNG rather than an
// encoded frame so diffs stay reviewable in ordinary tooling. A frame that
// cannot be decoded fails the test regardless of mode.
func AssertH264Frame(t TestingT, path string, width, height int, frame []byte, minScore float64) {
	t.Helper()
	if _, err := CompareH264Frame(path, width, height, frame, minScore); err != nil {
		t.Fatalf("twenty-twenty: %v", err)
	}
}

// CompareImage runs the same pipeline as AssertImage but reports the
// outcome instead of failing a test. The error is a
// *store.MismatchError for a below-threshold score, a
// *store.MissingReferenceError when no reference exists, or an IO error
// from the reference or artifact files.
func CompareImage(path string, actual image.Image, minScore float64) (store.Result, error) {
	cfg := ConfigFromEnv()
	return store.Run(path, actual, minScore, store.Options{
		Mode:        cfg.Mode,
		ArtifactDir: cfg.ArtifactDir,
	})
}

// CompareH264Frame decodes frame and runs CompareImage on the result. A
// *h264.DecodeError is returned before any reference is touched, so a
// corrupt frame can never overwrite a golden file.
func CompareH264Frame(path string, width, height int, frame []byte, minScore float64) (store.Result, error) {
	img, err := frameDecoder.Decode(frame, width, height)
	if err != nil {
		return store.Result{Path: path, MinScore: minScore}, err
	}
	return CompareImage(path, img, minScore)
}
