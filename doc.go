// Package twentytwenty provides visual regression assertions for images and
// single H.264 frames.
//
// Each assertion takes a minimum permissible similarity: the lowest score in
// [0, 1] the caller is willing to accept from the image comparison. The score
// is an SSIM value, a perceptual metric that quantifies structural image
// degradation; identical images score 1.0. If the computed score lands below
// the minimum, the test fails with the score, the threshold, and the
// reference path in the message.
//
// Use it like this for an image:
//
//	func TestRender(t *testing.T) {
//		actual := render()
//		twentytwenty.AssertImage(t, "testdata/render.png", actual, 0.9)
//	}
//
// and like this for an H.264 frame, declaring the frame's dimensions:
//
//	twentytwenty.AssertH264Frame(t, "testdata/frame.png", 1280, 720, frame, 0.9)
//
// # Golden-file workflow
//
//  1. Write the test as above and run it once with TWENTY_TWENTY=overwrite.
//     The actual image is written to the reference path, next to the test.
//  2. Review the written image and commit it if it is correct.
//  3. Run the tests normally. If the rendered output drifts from the
//     committed reference, the test fails with the similarity score.
//
// # Storing artifacts in CI
//
// Set TWENTY_TWENTY=store-artifact to persist every compared image, or
// TWENTY_TWENTY=store-artifact-on-mismatch to persist only failing ones.
// Artifacts land under the artifacts/ directory (configurable with
// TWENTY_TWENTY_ARTIFACT_DIR), mirroring each reference path, together with
// a diff heatmap and an index.db listing every stored comparison.
//
// H.264 decoding goes through OpenCV's FFmpeg backend and needs OpenCV
// installed on the host; plain image assertions have no such requirement.
package twentytwenty
