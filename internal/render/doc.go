// Package render draws identified shapes for people to look at.
//
// Annotate copies a frame and draws each shape's outline in its palette
// swatch, a centroid marker, a "Color Label" caption and the frame-centred
// "(dx, dy)" coordinate. WriteSVG emits the same overlay as SVG. Window
// displays annotated frames and reports when the user presses q; it needs a
// build tagged gocv.
package render
