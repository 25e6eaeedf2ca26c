package detection

import (
	"image"
	"testing"
)

func TestMapCoordinates(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		c             image.Point
		want          RelativeCoordinate
	}{
		{"center", 200, 200, image.Point{X: 100, Y: 100}, RelativeCoordinate{0, 0}},
		{"one pixel up", 200, 200, image.Point{X: 100, Y: 99}, RelativeCoordinate{0, 1}},
		{"one pixel down", 200, 200, image.Point{X: 100, Y: 101}, RelativeCoordinate{0, -1}},
		{"right", 200, 200, image.Point{X: 150, Y: 100}, RelativeCoordinate{50, 0}},
		{"top-left corner", 200, 200, image.Point{X: 0, Y: 0}, RelativeCoordinate{-100, 100}},
		{"odd frame center", 201, 101, image.Point{X: 100, Y: 50}, RelativeCoordinate{0, 0}},
		{"wide frame", 640, 480, image.Point{X: 0, Y: 479}, RelativeCoordinate{-320, -239}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapCoordinates(tt.width, tt.height, tt.c); got != tt.want {
				t.Errorf("MapCoordinates = %+v, want %+v", got, tt.want)
			}
		})
	}
}
