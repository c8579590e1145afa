package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

type point struct{ X, Y float64 }

var (
	parsedFonts = sync.OnceValues(func() ([2]*sfnt.Font, error) {
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return [2]*sfnt.Font{}, fmt.Errorf("parse regular font: %w", err)
		}
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			return [2]*sfnt.Font{}, fmt.Errorf("parse bold font: %w", err)
		}
		return [2]*sfnt.Font{regular, bold}, nil
	})

	white     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	black     = color.RGBA{0x00, 0x00, 0x00, 0xff}
	darkGrey  = color.RGBA{0x33, 0x33, 0x33, 0xff}
	midGrey   = color.RGBA{0x99, 0x99, 0x99, 0xff}
	gridGrey  = color.RGBA{0xe6, 0xe6, 0xe6, 0xff}
	todayTick = color.RGBA{0x00, 0x80, 0x00, 0xff}
	starGold  = color.RGBA{0xff, 0xb3, 0x00, 0xff}
)

type faceKey struct {
	size float64
	bold bool
}

// canvas is a white RGBA raster with a few vector primitives.
type canvas struct {
	img   *image.RGBA
	fonts [2]*sfnt.Font
	faces map[faceKey]font.Face
}

func newCanvas(width, height int) (*canvas, error) {
	fonts, err := parsedFonts()
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	return &canvas{img: img, fonts: fonts, faces: map[faceKey]font.Face{}}, nil
}

func (c *canvas) encode() ([]byte, error) {
	for _, f := range c.faces {
		_ = f.Close()
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *canvas) fillRect(x0, y0, x1, y1 float64, col color.Color) {
	r := image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1))).Canon()
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

// fillPolygon fills a simple polygon using even-odd scanlines.
func (c *canvas) fillPolygon(pts []point, col color.Color) {
	if len(pts) < 3 {
		return
	}
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	bounds := c.img.Bounds()
	y0 := max(int(math.Floor(minY)), bounds.Min.Y)
	y1 := min(int(math.Ceil(maxY)), bounds.Max.Y-1)

	xs := make([]float64, 0, len(pts))
	for y := y0; y <= y1; y++ {
		sy := float64(y) + 0.5
		xs = xs[:0]
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			if (a.Y <= sy && b.Y > sy) || (b.Y <= sy && a.Y > sy) {
				xs = append(xs, a.X+(sy-a.Y)*(b.X-a.X)/(b.Y-a.Y))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			from := max(int(math.Round(xs[i])), bounds.Min.X)
			to := min(int(math.Round(xs[i+1])), bounds.Max.X)
			for x := from; x < to; x++ {
				c.img.Set(x, y, col)
			}
		}
	}
}

func (c *canvas) line(x0, y0, x1, y1, width float64, col color.Color) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	c.fillPolygon([]point{
		{x0 + nx, y0 + ny},
		{x1 + nx, y1 + ny},
		{x1 - nx, y1 - ny},
		{x0 - nx, y0 - ny},
	}, col)
}

func (c *canvas) polyline(pts []point, width float64, col color.Color) {
	for i := 0; i+1 < len(pts); i++ {
		c.line(pts[i].X, pts[i].Y, pts[i+1].X, pts[i+1].Y, width, col)
	}
}

// fillWedge paints the ring sector between radii inner..outer, from angle a0 counter-clockwise to a1 (degrees).
func (c *canvas) fillWedge(cx, cy, inner, outer, a0, a1 float64, col color.Color) {
	span := a1 - a0
	full := span >= 360
	start := normDeg(a0)
	bounds := c.img.Bounds()
	minX := max(int(math.Floor(cx-outer)), bounds.Min.X)
	maxX := min(int(math.Ceil(cx+outer)), bounds.Max.X-1)
	minY := max(int(math.Floor(cy-outer)), bounds.Min.Y)
	maxY := min(int(math.Ceil(cy+outer)), bounds.Max.Y-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5-cx, cy-(float64(y)+0.5)
			d := math.Hypot(px, py)
			if d < inner || d > outer {
				continue
			}
			if !full {
				angle := normDeg(math.Atan2(py, px) * 180 / math.Pi)
				if normDeg(angle-start) > span {
					continue
				}
			}
			c.img.Set(x, y, col)
		}
	}
}

func (c *canvas) fillCircle(cx, cy, r float64, col color.Color) {
	c.fillWedge(cx, cy, 0, r, 0, 360, col)
}

// star draws a five-pointed star centred at (cx, cy).
func (c *canvas) star(cx, cy, r float64, col color.Color) {
	pts := make([]point, 0, 10)
	for i := 0; i < 10; i++ {
		radius := r
		if i%2 == 1 {
			radius = r * 0.45
		}
		a := math.Pi/2 + float64(i)*math.Pi/5
		pts = append(pts, point{cx + radius*math.Cos(a), cy - radius*math.Sin(a)})
	}
	c.fillPolygon(pts, col)
}

// stars draws a row of five stars with the first filled ones in fill.
func (c *canvas) stars(cx, cy, r float64, filled int, fill, empty color.Color) {
	step := r * 2.2
	x := cx - step*2
	for i := 0; i < 5; i++ {
		col := empty
		if i < filled {
			col = fill
		}
		c.star(x+float64(i)*step, cy, r, col)
	}
}

func (c *canvas) face(size float64, bold bool) font.Face {
	key := faceKey{size: size, bold: bold}
	if f, ok := c.faces[key]; ok {
		return f
	}
	src := c.fonts[0]
	if bold {
		src = c.fonts[1]
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		f = nil
	}
	c.faces[key] = f
	return f
}

func (c *canvas) textWidth(s string, size float64, bold bool) float64 {
	f := c.face(size, bold)
	if f == nil {
		return 0
	}
	return float64(font.MeasureString(f, s)) / 64
}

// text draws s with its baseline at y.
func (c *canvas) text(s string, x, y, size float64, bold bool, col color.Color, a align) {
	f := c.face(size, bold)
	if f == nil {
		return
	}
	switch a {
	case alignCenter:
		x -= c.textWidth(s, size, bold) / 2
	case alignRight:
		x -= c.textWidth(s, size, bold)
	}
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: f,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(s)
}

// centeredText vertically centres s on y.
func (c *canvas) centeredText(s string, x, y, size float64, bold bool, col color.Color) {
	c.text(s, x, y+size*0.35, size, bold, col, alignCenter)
}

func normDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func parseHex(s string) color.RGBA {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	}
	return color.RGBA{r, g, b, 0xff}
}
