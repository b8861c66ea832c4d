// Package ocr wraps the Tesseract engine (via gosseract/v2) to read text
// from in-memory images.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The tessdata directory can be overridden per Reader, for example from the
// ocr.tessdata_prefix configuration key.
//
// # Coordinates
//
// Read reports word boxes relative to the top-left corner of the image it
// was given. ReadRegion crops first and shifts the boxes back into the
// source image's coordinates.
package ocr
