package compose

import (
	"context"
	"errors"
	"image"
	"image/color"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eringen/splatcard/fetch"
)

// ErrNoWeapons is returned when a weapon card has nothing to draw.
var ErrNoWeapons = errors.New("compose: no weapons")

// AssetResolver returns decoded remote images. *fetch.Fetcher satisfies it.
type AssetResolver interface {
	Resolve(ctx context.Context, ref fetch.Ref) (image.Image, error)
}

// Renderer lays out cards from remote assets, static images and text.
// It holds no mutable state and is safe for concurrent use.
type Renderer struct {
	assets  AssetResolver
	static  Static
	fonts   *Fonts
	printer *message.Printer
	loc     *time.Location
	now     func() time.Time
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithLanguage selects the label language.
func WithLanguage(tag language.Tag) RendererOption {
	return func(r *Renderer) { r.printer = message.NewPrinter(tag) }
}

// WithLocation sets the zone used to print time windows.
func WithLocation(loc *time.Location) RendererOption {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithClock overrides the clock used to classify time windows.
func WithClock(now func() time.Time) RendererOption {
	return func(r *Renderer) { r.now = now }
}

// NewRenderer returns a Renderer. A nil fonts uses DefaultFonts.
func NewRenderer(assets AssetResolver, static Static, fonts *Fonts, opts ...RendererOption) (*Renderer, error) {
	if fonts == nil {
		var err error
		if fonts, err = DefaultFonts(); err != nil {
			return nil, err
		}
	}
	r := &Renderer{
		assets:  assets,
		static:  static,
		fonts:   fonts,
		printer: message.NewPrinter(language.English),
		loc:     time.Local,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

const (
	labelHeight = 30
	labelRadius = 16
	labelPad    = 16
)

// NameLabel renders text in white on a rounded black plate.
func (r *Renderer) NameLabel(text string, size float64) (*image.NRGBA, error) {
	face, err := newFace(r.fonts.Text, size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	tw, th := measure(face, text)
	_, plate := RoundCorners(Canvas(tw+labelPad, labelHeight, color.Black), labelRadius)
	at := image.Pt((plate.Bounds().Dx()-tw)/2, (labelHeight-th)/2)
	drawText(plate, face, at, text, color.White)
	return plate, nil
}

// TimeHeader renders "date  start - end" centred on the time-header image.
func (r *Renderer) TimeHeader(size image.Point, date, start, end string) (*image.RGBA, error) {
	src, err := r.static.Image(StaticTimeHeader)
	if err != nil {
		return nil, err
	}
	dst := Resize(src, size.X, size.Y)

	face, err := newFace(r.fonts.Title, 40)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	text := date + "  " + start + " - " + end
	tw, th := measure(face, text)
	drawText(dst, face, image.Pt((size.X-tw)/2, (size.Y-th)/2-12), text, color.White)
	return dst, nil
}
