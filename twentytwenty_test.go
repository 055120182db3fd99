package twentytwenty

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KittyCAD/twenty-twenty/h264"
	"github.com/KittyCAD/twenty-twenty/store"
)

// recordingT captures assertion failures instead of aborting the test
type recordingT struct {
	failed  bool
	message string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
}

// fakeDecoder satisfies h264.FrameDecoder without OpenCV: it either fails
// or hands back a canned image.
type fakeDecoder struct {
	img image.Image
	err error
}

func (f *fakeDecoder) Decode(frame []byte, width, height int) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

// swapDecoder installs dec for the duration of the test
func swapDecoder(t *testing.T, dec h264.FrameDecoder) {
	t.Helper()
	prev := frameDecoder
	frameDecoder = dec
	t.Cleanup(func() { frameDecoder = prev })
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestAssertImageOverwriteThenAssert(t *testing.T) {
	chdir(t, t.TempDir())
	actual := solidImage(100, 100, red)

	// First run in overwrite mode writes the golden file.
	t.Setenv(EnvVar, "overwrite")
	rt := &recordingT{}
	AssertImage(rt, "tests/ref.png", actual, 1.0)
	require.False(t, rt.failed, "overwrite run failed: %s", rt.message)
	assert.FileExists(t, "tests/ref.png")

	// Second run in the default mode compares against it and passes.
	t.Setenv(EnvVar, "")
	res, err := CompareImage("tests/ref.png", actual, 1.0)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.InDelta(t, 1.0, res.Score, 1e-6)
}

func TestAssertImageMissingReference(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvVar, "")

	rt := &recordingT{}
	AssertImage(rt, "tests/never-written.png", solidImage(10, 10, red), 0.9)
	require.True(t, rt.failed)
	assert.Contains(t, rt.message, "tests/never-written.png")
	assert.Contains(t, rt.message, "TWENTY_TWENTY=overwrite")
}

func TestAssertImageMismatchReportsScoreAndThreshold(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvVar, "")

	require.NoError(t, store.WriteReference("ref.png", solidImage(100, 100, red)))

	rt := &recordingT{}
	AssertImage(rt, "ref.png", solidImage(100, 100, blue), 0.9)
	require.True(t, rt.failed)
	assert.Contains(t, rt.message, "0.9")
	assert.Contains(t, rt.message, "ref.png")
}

func TestAssertImageStoresArtifactOnMismatch(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvVar, "store-artifact-on-mismatch")

	require.NoError(t, store.WriteReference("tests/ref.png", solidImage(64, 64, red)))

	rt := &recordingT{}
	AssertImage(rt, "tests/ref.png", solidImage(64, 64, blue), 0.9)
	require.True(t, rt.failed)
	assert.FileExists(t, "artifacts/tests/ref.png")
}

func TestAssertImageHonorsArtifactDirOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvVar, "store-artifact")
	t.Setenv("TWENTY_TWENTY_ARTIFACT_DIR", "ci-output")

	require.NoError(t, store.WriteReference("tests/ref.png", solidImage(32, 32, red)))

	res, err := CompareImage("tests/ref.png", solidImage(32, 32, red), 0.9)
	require.NoError(t, err)
	assert.FileExists(t, "ci-output/tests/ref.png")
	assert.Equal(t, "ci-output/tests/ref.png", res.ArtifactPath)
}

func TestAssertImageUnrecognizedModeAsserts(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvVar, "definitely-not-a-mode")

	actual := solidImage(20, 20, red)
	require.NoError(t, store.WriteReference("ref.png", actual))

	// Falls back to strict assert: pass, and nothing written anywhere.
	res, err := CompareImage("ref.png", actual, 0.9)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.NoDirExists(t, "artifacts")
}

func TestAssertH264FrameHappyPath(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvVar, "")

	decoded := solidImage(100, 100, red)
	swapDecoder(t, &fakeDecoder{img: decoded})
	require.NoError(t, store.WriteReference("frame.png", decoded))

	rt := &recordingT{}
	AssertH264Frame(rt, "frame.png", 100, 100, []byte{0x00, 0x00, 0x01}, 0.9)
	assert.False(t, rt.failed, "assertion failed: %s", rt.message)
}

func TestAssertH264FrameDecodeError(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvVar, "")

	swapDecoder(t, &fakeDecoder{err: &h264.DecodeError{Reason: "truncated NAL unit"}})

	// The decode failure must surface before any reference is consulted, so
	// no MissingReference error even though the path does not exist.
	_, err := CompareH264Frame("frame.png", 100, 100, []byte{0xff}, 0.9)
	var decodeErr *h264.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	var missing *store.MissingReferenceError
	assert.False(t, errors.As(err, &missing))

	rt := &recordingT{}
	AssertH264Frame(rt, "frame.png", 100, 100, []byte{0xff}, 0.9)
	require.True(t, rt.failed)
	assert.Contains(t, rt.message, "truncated NAL unit")
}

func TestDecodeErrorCannotOverwriteReference(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvVar, "overwrite")

	swapDecoder(t, &fakeDecoder{err: &h264.DecodeError{Reason: "garbage in"}})

	_, err := CompareH264Frame("frame.png", 100, 100, []byte{0xff}, 0.9)
	require.Error(t, err)
	assert.NoFileExists(t, "frame.png")
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")
	t.Setenv("TWENTY_TWENTY_ARTIFACT_DIR", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, ModeAssert, cfg.Mode)
	assert.Equal(t, "artifacts", cfg.ArtifactDir)
}

func TestConfigFromEnvReadsMode(t *testing.T) {
	t.Setenv(EnvVar, "store-artifact")
	cfg := ConfigFromEnv()
	assert.Equal(t, ModeStoreArtifact, cfg.Mode)
}
