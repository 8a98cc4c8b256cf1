package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
)

// Marker is the region of a screenshot the failure report points at.
type Marker struct {
	Box   image.Rectangle
	Point image.Point
}

var (
	boxColor   = color.RGBA{220, 38, 38, 255}  // red
	pointColor = color.RGBA{66, 133, 244, 255} // blue
)

// Annotate outlines the marker box and the click point on a PNG screenshot
// and returns the result as PNG.
func Annotate(screenshot []byte, m Marker) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	bounds := src.Bounds()
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, src, bounds.Min, draw.Src)

	if !m.Box.Empty() {
		drawBox(img, m.Box, boxColor, 3)
	}
	if m.Point != (image.Point{}) {
		drawCrosshair(img, m.Point.X, m.Point.Y, pointColor)
		drawRing(img, m.Point.X, m.Point.Y, 15, pointColor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode annotated screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBox draws a rectangle outline of the given thickness
func drawBox(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	for i := 0; i < thickness; i++ {
		x1, y1, x2, y2 := r.Min.X-i, r.Min.Y-i, r.Max.X+i, r.Max.Y+i
		drawLine(img, x1, y1, x2, y1, c)
		drawLine(img, x2, y1, x2, y2, c)
		drawLine(img, x2, y2, x1, y2, c)
		drawLine(img, x1, y2, x1, y1, c)
	}
}

func drawCrosshair(img *image.RGBA, x, y int, c color.RGBA) {
	const arm = 10
	drawLine(img, x-arm, y, x+arm, y, c)
	drawLine(img, x, y-arm, x, y+arm, c)
}

// drawLine draws a line between two points using Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func drawRing(img *image.RGBA, x, y, radius int, c color.RGBA) {
	for angle := 0.0; angle < 360; angle++ {
		rad := angle * math.Pi / 180
		px := x + int(float64(radius)*math.Cos(rad))
		py := y + int(float64(radius)*math.Sin(rad))
		setPixelSafe(img, px, py, c)
		setPixelSafe(img, px+1, py, c)
		setPixelSafe(img, px, py+1, c)
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
