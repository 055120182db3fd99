// Package store manages the lifecycle of one reference image per assertion:
// load it, compare it against the actual image, overwrite it, or persist the
// actual as a reviewable artifact, depending on the run mode.
package store

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/KittyCAD/twenty-twenty/logging"
	"github.com/KittyCAD/twenty-twenty/ssim"
)

// DefaultArtifactDir is where artifacts land when no directory is configured.
const DefaultArtifactDir = "artifacts"

// MissingReferenceError means the reference image does not exist yet. The
// remedy is a run in overwrite mode, which writes the current actual image
// as the new reference.
type MissingReferenceError struct {
	Path string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("reference image %q does not exist; rerun with TWENTY_TWENTY=overwrite to create it", e.Path)
}

// MismatchError is the expected failure mode of an assertion: both images
// decoded and compared fine, but the similarity score came in below the
// caller's minimum.
type MismatchError struct {
	Path     string
	Score    float64
	MinScore float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("image %q scored %v, less than the minimum permissible similarity %v; set TWENTY_TWENTY=overwrite if these changes are intentional",
		e.Path, e.Score, e.MinScore)
}

// Options configures one Run call.
type Options struct {
	// Mode selects the lifecycle branch. The zero value is ModeAssert.
	Mode Mode

	// ArtifactDir is where store-artifact modes persist images and the
	// artifact index. Empty means DefaultArtifactDir.
	ArtifactDir string
}

// Result describes what one Run call did.
type Result struct {
	Path         string
	Score        float64
	MinScore     float64
	Passed       bool
	Overwritten  bool
	ArtifactPath string
}

// Run executes the reference lifecycle for a single assertion.
//
// In overwrite mode it writes the actual image as the new reference and
// reports success without comparing. In every other mode it loads the
// reference, scores it against the actual image, optionally persists
// artifacts, and fails with a MismatchError when the score lands below
// minScore. The threshold is an inclusive lower bound: a score exactly
// equal to minScore passes.
func Run(path string, actual image.Image, minScore float64, opts Options) (Result, error) {
	res := Result{Path: path, MinScore: minScore}

	if minScore < 0 || minScore > 1 {
		return res, fmt.Errorf("minimum permissible similarity %v is outside [0, 1]", minScore)
	}
	if opts.ArtifactDir == "" {
		opts.ArtifactDir = DefaultArtifactDir
	}

	if opts.Mode == ModeOverwrite {
		if err := WriteReference(path, actual); err != nil {
			return res, err
		}
		logging.Debugf("overwrote reference %q", path)
		res.Score = 1.0
		res.Passed = true
		res.Overwritten = true
		return res, nil
	}

	ref, err := LoadReference(path)
	if err != nil {
		return res, err
	}

	res.Score = ssim.Compare(ref, actual)
	res.Passed = res.Score >= minScore
	logging.Debugf("compared %q: score %v, minimum %v", path, res.Score, minScore)

	if opts.Mode == ModeStoreArtifact || (opts.Mode == ModeStoreArtifactOnMismatch && !res.Passed) {
		artifactPath, err := storeArtifact(opts.ArtifactDir, path, ref, actual, res)
		if err != nil {
			return res, err
		}
		res.ArtifactPath = artifactPath
	}

	if !res.Passed {
		return res, &MismatchError{Path: path, Score: res.Score, MinScore: minScore}
	}
	return res, nil
}

// LoadReference reads the reference PNG at path. A nonexistent path is a
// MissingReferenceError; any other read or decode problem is reported with
// the path attached.
func LoadReference(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingReferenceError{Path: path}
		}
		return nil, fmt.Errorf("reading reference image %q: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding reference image %q: %w", path, err)
	}
	return img, nil
}

// WriteReference persists img as the reference PNG at path, creating parent
// directories as needed. The write is atomic: the image is encoded to a
// temp file in the destination directory and renamed into place, so a
// failed run never leaves a partial reference behind.
func WriteReference(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating reference directory %q: %w", dir, err)
	}
	return writeAtomicPNG(path, img)
}

// writeAtomicPNG encodes img to a temp file next to path and renames it
// into place
func writeAtomicPNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".twenty-twenty-*.png")
	if err != nil {
		return fmt.Errorf("creating temp file for %q: %w", path, err)
	}

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encoding image for %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing image to %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("placing image at %q: %w", path, err)
	}
	return nil
}
