package detection

import "image"

// MapCoordinates converts a frame-local centroid into a center-relative
// coordinate with y pointing up:
//
//	DX = cx - width/2
//	DY = height/2 - cy
//
// Halves use integer division: in a 200x200 frame the center is pixel
// (100,100), below and right of the geometric midpoint.
func MapCoordinates(width, height int, c image.Point) RelativeCoordinate {
	return RelativeCoordinate{
		DX: c.X - width/2,
		DY: height/2 - c.Y,
	}
}
