// Package detection implements the analysis algorithms behind the vision
// tools: blob extraction, caliper edge measurement, template correlation and
// binary-feature matching with homography estimation.
//
// Everything here works on single-channel imaging.Gray buffers or on Masks
// derived from them, and knows nothing about tools, ROIs or results. Callers
// extract their region first and offset the returned geometry themselves.
//
// # Blob Analysis
//
//  1. Binarize: threshold a Gray buffer into a Mask (or take a binary image as is)
//  2. Contours: label 8-connected components, find holes (4-connected
//     background not touching the border) and trace each boundary with
//     Moore-neighbour following
//  3. Describe: area, perimeter, centroid, bounding box, convex hull ratios,
//     minimum-area rectangle and moment-fitted ellipse
//  4. Filter and sort: inclusive ranges per descriptor, then a stable sort
//
// # Caliper
//
// A caliper samples an intensity profile along a segment, averaging across
// its width, convolves it with an antisymmetric ramp and reports strict local
// extrema above a threshold as edges. Edge pairs of opposite polarity are
// ranked by how close their separation is to an expected width.
//
// # Template Matching
//
// Correlate computes one of six OpenCV-compatible measures using summed-area
// tables for the window statistics, normalised so that higher scores are
// better. Building with the gocv tag hands the correlation to OpenCV.
// FindTemplate adds peak extraction, multi-scale and rotation search, and
// non-maximum suppression.
//
// # Feature Matching
//
// DetectFeatures finds FAST or Harris corners on a small image pyramid and
// describes them with 256-bit steered BRIEF. MatchFeatures applies a 2-NN
// ratio test and FindHomography fits a projective transform with RANSAC over
// a normalised DLT solved by SVD.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
package detection
