package ssim

import "image"

// dimensions returns the pixel width and height of an image
func dimensions(img image.Image) (int, int) {
	size := img.Bounds().Size()
	return size.X, size.Y
}

// lumaPlane converts the top-left w x h region of an image to a flat
// row-major plane of luminance values in [0, 255]. Color images are reduced
// with the BT.601 luma weights; grayscale images pass through unchanged
// since their RGBA channels are already equal.
func lumaPlane(img image.Image, w, h int) []float64 {
	bounds := img.Bounds()
	plane := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			// RGBA returns alpha-premultiplied 16-bit channels.
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			luma := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			plane[row+x] = luma * 255.0 / 65535.0
		}
	}
	return plane
}
