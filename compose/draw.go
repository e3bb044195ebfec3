// Package compose builds the notification card images: pure drawing
// helpers (rounded corners, alpha paste, tiling, dashed lines) and a
// Renderer that lays out stage, weapon and event cards.
package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// bezierCircle is the cubic control-point distance for a quarter circle.
const bezierCircle = 0.5522847498

// RoundCorners masks the four corners of img with quarter circles of the
// given radius. The mask starts fully opaque; each corner receives one
// quadrant of a filled circle. It returns the mask and a copy of img with
// the mask as its alpha channel.
func RoundCorners(img image.Image, radius int) (*image.Alpha, *image.NRGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	mask := image.NewAlpha(out.Bounds())
	draw.Draw(mask, mask.Bounds(), image.Opaque, image.Point{}, draw.Src)

	if radius > 0 {
		r := radius
		circle := circleMask(r)
		draw.Draw(mask, image.Rect(0, 0, r, r), circle, image.Pt(0, 0), draw.Src)
		draw.Draw(mask, image.Rect(w-r, 0, w, r), circle, image.Pt(r, 0), draw.Src)
		draw.Draw(mask, image.Rect(w-r, h-r, w, h), circle, image.Pt(r, r), draw.Src)
		draw.Draw(mask, image.Rect(0, h-r, r, h), circle, image.Pt(0, r), draw.Src)
	}

	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride:]
		mrow := mask.Pix[y*mask.Stride:]
		for x := 0; x < w; x++ {
			row[x*4+3] = mrow[x]
		}
	}
	return mask, out
}

// circleMask rasterises an anti-aliased filled circle of radius r into a
// 2r×2r alpha image.
func circleMask(r int) *image.Alpha {
	d := 2 * r
	fr := float32(r)
	k := bezierCircle * fr

	z := vector.NewRasterizer(d, d)
	z.MoveTo(2*fr, fr)
	z.CubeTo(2*fr, fr+k, fr+k, 2*fr, fr, 2*fr)
	z.CubeTo(fr-k, 2*fr, 0, fr+k, 0, fr)
	z.CubeTo(0, fr-k, fr-k, 0, fr, 0)
	z.CubeTo(fr+k, 0, 2*fr, fr-k, 2*fr, fr)
	z.ClosePath()

	dst := image.NewAlpha(image.Rect(0, 0, d, d))
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	return dst
}

// PasteWithAlpha composites src over dst with src's top-left at at, using
// src's own alpha channel as the blend mask.
func PasteWithAlpha(dst draw.Image, src image.Image, at image.Point) {
	sb := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	draw.Draw(dst, r, src, sb.Min, draw.Over)
}

// TiledFill repeats tile across dst row by row until it is covered and
// returns the number of pastes. Edge tiles are clipped.
func TiledFill(dst draw.Image, tile image.Image) int {
	db := dst.Bounds()
	tw, th := tile.Bounds().Dx(), tile.Bounds().Dy()
	if tw <= 0 || th <= 0 {
		return 0
	}
	n := 0
	for left := db.Min.X; left < db.Max.X; left += tw {
		for top := db.Min.Y; top < db.Max.Y; top += th {
			PasteWithAlpha(dst, tile, image.Pt(left, top))
			n++
		}
	}
	return n
}

// ChangeAlpha returns a copy of img with every alpha value scaled by
// percent (clamped to 0..100).
func ChangeAlpha(img image.Image, percent int) *image.NRGBA {
	percent = max(0, min(100, percent))
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = uint8(int(out.Pix[i]) * percent / 100)
	}
	return out
}

// Resize scales img to w×h with Catmull-Rom resampling.
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Canvas returns a w×h RGBA image filled with c.
func Canvas(w, h int, c color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return dst
}

// DashedLineH draws a horizontal dashed line from from to to (only from.Y
// is used). A stroke of gap/2 pixels starts every gap pixels.
func DashedLineH(dst draw.Image, from, to image.Point, c color.Color, width, gap int) {
	if gap <= 0 {
		return
	}
	for x := from.X; x < to.X; x += gap {
		strokeH(dst, x, x+gap/2, from.Y, c, width)
	}
}

// DashedLineV draws a vertical dashed line from from to to (only from.X is
// used).
func DashedLineV(dst draw.Image, from, to image.Point, c color.Color, width, gap int) {
	if gap <= 0 {
		return
	}
	for y := from.Y; y < to.Y; y += gap {
		strokeV(dst, from.X, y, y+gap/2, c, width)
	}
}

// strokeH fills the segment x0..x1 (inclusive) centred on y.
func strokeH(dst draw.Image, x0, x1, y int, c color.Color, width int) {
	top := y - width/2
	r := image.Rect(x0, top, x1+1, top+max(width, 1))
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func strokeV(dst draw.Image, x, y0, y1 int, c color.Color, width int) {
	left := x - width/2
	r := image.Rect(left, y0, left+max(width, 1), y1+1)
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
