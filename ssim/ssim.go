// Package ssim computes the structural similarity index between two images.
//
// The score is a perceptual similarity metric in [0, 1]: 1.0 means the
// images are identical under the metric, values near 0 mean they share
// essentially no structure. The comparison is done on luminance only,
// over fixed 8x8 windows, so it is robust against small pointwise noise
// while still catching structural changes like a moved edge or a shifted
// color field.
package ssim

import (
	"image"
	"math"
)

const (
	// windowSize is the side of the square comparison window. Windows at
	// the right and bottom edges may be smaller; an image smaller than one
	// window is scored as a single window.
	windowSize = 8

	// Stabilizing constants from the SSIM paper, derived from the 8-bit
	// dynamic range L=255: C1=(0.01*L)^2, C2=(0.03*L)^2. They keep the
	// per-window formula away from division by zero on flat regions.
	c1 = (0.01 * 255) * (0.01 * 255)
	c2 = (0.03 * 255) * (0.03 * 255)
)

// Compare returns the mean SSIM score between two images.
//
// If the images differ in width or height, only the overlapping top-left
// region of size min(w1,w2) x min(h1,h2) is compared, and the mean window
// score is scaled by the overlap's share of the larger image's area. A
// reference that is twice the size of the actual can therefore never score
// anywhere near 1.0, even if the overlapping pixels agree exactly.
//
// Compare never fails: any two images yield a deterministic score in [0, 1].
func Compare(a, b image.Image) float64 {
	aw, ah := dimensions(a)
	bw, bh := dimensions(b)

	// Overlapping top-left region.
	w := min(aw, bw)
	h := min(ah, bh)
	if w == 0 || h == 0 {
		// At least one image has no pixels; nothing is comparable.
		return 0
	}

	lumaA := lumaPlane(a, w, h)
	lumaB := lumaPlane(b, w, h)

	// Slide the window over the overlap with a stride of one window, so
	// every pixel belongs to exactly one window. Windows are visited in
	// row-major order and accumulated in that order, which keeps the
	// result bit-for-bit reproducible.
	var sum float64
	var windows int
	for wy := 0; wy < h; wy += windowSize {
		for wx := 0; wx < w; wx += windowSize {
			ww := min(windowSize, w-wx)
			wh := min(windowSize, h-wy)
			sum += windowScore(lumaA, lumaB, w, wx, wy, ww, wh)
			windows++
		}
	}
	score := sum / float64(windows)

	// Penalize dimension mismatch by the fraction of the larger image the
	// overlap actually covers. Equal dimensions leave the score untouched.
	coverage := float64(w*h) / float64(max(aw, bw)*max(ah, bh))
	score *= coverage

	// Individual window scores can go slightly negative on anticorrelated
	// content; keep the final score inside [0, 1].
	return math.Min(math.Max(score, 0), 1)
}

// windowScore computes the SSIM formula for one window of the two luminance
// planes. Both planes have row stride w; the window starts at (wx, wy) and
// spans ww x wh pixels.
func windowScore(lumaA, lumaB []float64, w, wx, wy, ww, wh int) float64 {
	n := float64(ww * wh)

	// First pass: means.
	var sumA, sumB float64
	for y := wy; y < wy+wh; y++ {
		row := y * w
		for x := wx; x < wx+ww; x++ {
			sumA += lumaA[row+x]
			sumB += lumaB[row+x]
		}
	}
	meanA := sumA / n
	meanB := sumB / n

	// Second pass: variances and covariance around the means.
	var varA, varB, cov float64
	for y := wy; y < wy+wh; y++ {
		row := y * w
		for x := wx; x < wx+ww; x++ {
			da := lumaA[row+x] - meanA
			db := lumaB[row+x] - meanB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	return ((2*meanA*meanB + c1) * (2*cov + c2)) /
		((meanA*meanA + meanB*meanB + c1) * (varA + varB + c2))
}
