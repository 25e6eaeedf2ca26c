// Package detection turns an edge map into labeled, colored, frame-centred
// shape observations.
//
// # Pipeline
//
// Pipeline.Process runs the per-frame stages in order:
//
//  1. imaging.ExtractEdges: binary edge map
//  2. FindContours: outer boundaries of external edge components
//  3. BuildCandidate: area filter, Douglas-Peucker vertex count, area-moment
//     centroid, circularity and bounding box
//  4. ShapeClassifier.Classify: vertex-count and aspect/circularity rules
//  5. ColorClassifier.Classify: single-pixel lookup at the centroid
//  6. MapCoordinates: offset from the frame center with y pointing up
//
// Stages 3 to 6 are independent per contour and run on a bounded worker
// pool; results keep contour discovery order.
//
// # Coordinate System
//
// Contours, centroids and bounding boxes are frame-local pixel coordinates:
// origin at the top-left, X rightward, Y downward. RelativeCoordinate is the
// only value with Y pointing up.
//
// # Color Tables
//
// Color classification scans an ordered ColorTable and the first containing
// range wins. Two strategies ship: HSVRanges over 8-bit HSV (the default)
// and RGBRules over raw RGB. Tables are read-only after construction.
//
// # Errors
//
// Nothing in the per-frame path returns an error. Degenerate contours are
// skipped, a frame without shapes yields an empty slice, and unmatched
// colors resolve to UnknownColor. Only NewPipeline and NewColorClassifier
// reject bad configuration.
package detection
