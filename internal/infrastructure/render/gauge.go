package render

import (
	"fmt"
	"image/color"
	"math"
)

var faceInk = color.RGBA{0x50, 0x50, 0x50, 0xff}

// moodMeter draws a half-dial with five coloured sectors and a needle at rating.
func moodMeter(rating float64) ([]byte, error) {
	const (
		width, height = 900, 560
		radius        = 380.0
		inner         = 190.0
	)
	c, err := newCanvas(width, height)
	if err != nil {
		return nil, err
	}
	cx, cy := float64(width)/2, 460.0

	for i, col := range gaugeColors {
		from := 180 - float64(i+1)*36
		c.fillWedge(cx, cy, 0, radius, from, from+36, col)
	}
	// White separators between sectors.
	for i := 1; i < len(gaugeColors); i++ {
		a := (180 - float64(i)*36) * math.Pi / 180
		c.line(cx, cy, cx+radius*math.Cos(a), cy-radius*math.Sin(a), 6, white)
	}
	c.fillCircle(cx, cy, inner, white)

	for i := range gaugeColors {
		a := (162 - float64(i)*36) * math.Pi / 180
		drawFace(c, cx+radius*0.75*math.Cos(a), cy-radius*0.75*math.Sin(a), 30, i)
	}

	clamped := math.Max(1, math.Min(5, rating))
	a := (180 - (clamped-1)*45) * math.Pi / 180
	tipX, tipY := cx+radius*0.95*math.Cos(a), cy-radius*0.95*math.Sin(a)
	base := 30.0
	c.fillPolygon([]point{
		{tipX, tipY},
		{cx + base*math.Cos(a+math.Pi/2), cy - base*math.Sin(a+math.Pi/2)},
		{cx + base*math.Cos(a-math.Pi/2), cy - base*math.Sin(a-math.Pi/2)},
	}, color.RGBA{0x1a, 0x1a, 0x1a, 0xff})
	c.fillCircle(cx, cy, 30, color.RGBA{0x1a, 0x1a, 0x1a, 0xff})

	c.text("FIKA MOOD METER", cx, 50, 34, true, darkGrey, alignCenter)
	c.text(fmt.Sprintf("%.1f", rating), cx, cy+80, 44, true, darkGrey, alignCenter)
	return c.encode()
}

// drawFace paints a smiley; mood runs from 0 (very sad) to 4 (happy).
func drawFace(c *canvas, cx, cy, r float64, mood int) {
	c.fillCircle(cx, cy, r, faceInk)
	c.fillCircle(cx, cy, r-4, white)

	eyeY := cy - r/4
	eyeDX := r / 3
	c.fillCircle(cx-eyeDX, eyeY, r/8, faceInk)
	c.fillCircle(cx+eyeDX, eyeY, r/8, faceInk)

	mouthY := cy + r/3
	mouthW := r / 2
	switch mood {
	case 0, 1:
		c.polyline(arc(cx, mouthY+mouthW*0.5, mouthW, 20, 160), 3, faceInk)
		if mood == 0 {
			c.line(cx-eyeDX-6, eyeY-12, cx-eyeDX+6, eyeY-8, 3, faceInk)
			c.line(cx+eyeDX-6, eyeY-8, cx+eyeDX+6, eyeY-12, 3, faceInk)
		}
	case 2:
		c.line(cx-mouthW, mouthY, cx+mouthW, mouthY, 3, faceInk)
	default:
		width := 3.0
		if mood == 4 {
			width = 4
		}
		c.polyline(arc(cx, mouthY-mouthW*0.6, mouthW, 200, 340), width, faceInk)
	}
}

// arc samples a circular arc from a0 to a1 degrees counter-clockwise.
func arc(cx, cy, r, a0, a1 float64) []point {
	const steps = 16
	pts := make([]point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := (a0 + (a1-a0)*float64(i)/steps) * math.Pi / 180
		pts = append(pts, point{cx + r*math.Cos(a), cy - r*math.Sin(a)})
	}
	return pts
}
