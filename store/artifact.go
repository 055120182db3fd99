package store

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/KittyCAD/twenty-twenty/logging"

	xdraw "golang.org/x/image/draw"
)

// storeArtifact persists the actual image under dir, mirroring the
// reference path so artifacts from different test cases never collide, and
// writes a diff heatmap next to it. Each stored artifact is also recorded
// in the index database; an index failure is logged rather than failing the
// assertion, since the image itself made it to disk.
func storeArtifact(dir, refPath string, ref, actual image.Image, res Result) (string, error) {
	actualPath := filepath.Join(dir, refPath)
	if err := os.MkdirAll(filepath.Dir(actualPath), 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory for %q: %w", actualPath, err)
	}
	if err := writeAtomicPNG(actualPath, actual); err != nil {
		return "", err
	}

	diffPath := diffArtifactPath(actualPath)
	if err := writeAtomicPNG(diffPath, renderDiff(ref, actual)); err != nil {
		return "", err
	}
	logging.Debugf("stored artifact %q and diff %q", actualPath, diffPath)

	if err := recordArtifact(dir, artifactRecord{
		ReferencePath: refPath,
		ArtifactPath:  actualPath,
		Score:         res.Score,
		MinScore:      res.MinScore,
		Passed:        res.Passed,
	}); err != nil {
		logging.Warnf("recording artifact %q in index: %v", actualPath, err)
	}

	return actualPath, nil
}

// diffArtifactPath derives the diff image path from the artifact path:
// artifacts/tests/grid.png becomes artifacts/tests/grid.diff.png.
func diffArtifactPath(artifactPath string) string {
	ext := filepath.Ext(artifactPath)
	return strings.TrimSuffix(artifactPath, ext) + ".diff" + ext
}

// renderDiff produces a heatmap of per-pixel deviation between the
// reference and the actual image: black where they agree, brighter red the
// further apart they are. When the two differ in size the actual is scaled
// to the reference's dimensions first with a nearest-neighbor filter, which
// is deterministic and keeps blocky changes visible. Scaling here is purely
// for rendering; it never feeds back into the similarity score.
func renderDiff(ref, actual image.Image) *image.RGBA {
	bounds := image.Rect(0, 0, ref.Bounds().Dx(), ref.Bounds().Dy())

	aligned := actual
	if actual.Bounds().Size() != ref.Bounds().Size() {
		scaled := image.NewRGBA(bounds)
		xdraw.NearestNeighbor.Scale(scaled, bounds, actual, actual.Bounds(), xdraw.Src, nil)
		aligned = scaled
	}

	refMin := ref.Bounds().Min
	alignedMin := aligned.Bounds().Min
	out := image.NewRGBA(bounds)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			rr, rg, rb, _ := ref.At(refMin.X+x, refMin.Y+y).RGBA()
			ar, ag, ab, _ := aligned.At(alignedMin.X+x, alignedMin.Y+y).RGBA()
			d := maxDelta(rr, ar, rg, ag, rb, ab)
			out.SetRGBA(x, y, color.RGBA{R: uint8(d >> 8), A: 255})
		}
	}
	return out
}

// maxDelta returns the largest absolute per-channel difference
func maxDelta(r1, r2, g1, g2, b1, b2 uint32) uint32 {
	d := absDiff(r1, r2)
	if dg := absDiff(g1, g2); dg > d {
		d = dg
	}
	if db := absDiff(b1, b2); db > d {
		d = db
	}
	return d
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
