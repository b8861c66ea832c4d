// Package pipeline runs an ordered list of vision tools over one source
// image.
//
// Each enabled tool receives the working image, which starts as a copy of
// the source and is replaced by every output a tool produces. Connections
// between tools, keyed by tool id, change that flow:
//
//   - image: the target takes the source's output instead of the working image
//   - result: the target is skipped when the source failed in this run
//   - coordinates: the target's ROI follows the source's CenterX/CenterY and
//     BoundingRect data
//
// Tool failures are recorded as Results and never stop a run.
package pipeline
