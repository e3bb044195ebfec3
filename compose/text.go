package compose

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Fonts holds the two typefaces used on cards. Text is used for names,
// labels and status; Title for time ranges and descriptions.
type Fonts struct {
	Text  *opentype.Font
	Title *opentype.Font
}

// DefaultFonts returns the bundled Go fonts.
func DefaultFonts() (*Fonts, error) {
	text, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	title, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Fonts{Text: text, Title: title}, nil
}

// LoadFonts reads TrueType/OpenType files from disk. An empty path keeps
// the bundled default for that role.
func LoadFonts(textPath, titlePath string) (*Fonts, error) {
	f, err := DefaultFonts()
	if err != nil {
		return nil, err
	}
	if textPath != "" {
		if f.Text, err = parseFontFile(textPath); err != nil {
			return nil, err
		}
	}
	if titlePath != "" {
		if f.Title, err = parseFontFile(titlePath); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	ft, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return ft, nil
}

// newFace returns a face at size points. Faces cache glyphs and are not
// safe for concurrent use, so each render opens its own.
func newFace(ft *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	return face, nil
}

// measure returns the pixel width and line height of s.
func measure(face font.Face, s string) (int, int) {
	m := face.Metrics()
	return font.MeasureString(face, s).Ceil(), (m.Ascent + m.Descent).Ceil()
}

// drawText draws s with its top-left corner at at.
func drawText(dst draw.Image, face font.Face, at image.Point, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(at.X, at.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}
