package compose

import (
	"context"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/eringen/splatcard/fetch"
)

// DefaultStageSize is the stage card size when none is requested.
var DefaultStageSize = image.Pt(1024, 340)

// stageLabelSize is the font size of the name plate under each thumbnail.
const stageLabelSize = 30

// StageCardInput describes one rotation slot.
type StageCardInput struct {
	Left  fetch.Ref `json:"left"`
	Right fetch.Ref `json:"right"`

	ContestMode  string `json:"contest_mode"`
	ContestIcon  string `json:"contest_icon"` // static image name, optional
	GameMode     string `json:"game_mode"`
	GameModeIcon string `json:"game_mode_icon"` // static image name, optional
	Desc         string `json:"desc"`

	Size image.Point `json:"-"`
}

// stageLayout returns the thumbnail size and the top-left offsets of the
// left and right thumbnails on a card of the given size.
func stageLayout(size image.Point) (thumb, left, right image.Point) {
	thumb = image.Pt(size.X*48/100, size.Y*70/100)
	gap := (size.X - 2*thumb.X) / 3
	left = image.Pt(gap, (size.Y-thumb.Y)*7/8-20)
	right = image.Pt(left.X+gap+thumb.X, left.Y)
	return thumb, left, right
}

// StageCard draws two stage thumbnails side by side with their names, the
// contest icon between them and the mode text above.
func (r *Renderer) StageCard(ctx context.Context, in StageCardInput) (*image.RGBA, error) {
	size := in.Size
	if size.X <= 0 || size.Y <= 0 {
		size = DefaultStageSize
	}

	bg, err := r.static.Image(StaticBackground)
	if err != nil {
		return nil, err
	}
	_, rounded := RoundCorners(Resize(bg, size.X, size.Y), 20)
	card := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(card, card.Bounds(), rounded, image.Point{}, draw.Src)

	thumb, left, right := stageLayout(size)
	for _, slot := range []struct {
		ref fetch.Ref
		at  image.Point
	}{{in.Left, left}, {in.Right, right}} {
		img, err := r.assets.Resolve(ctx, slot.ref)
		if err != nil {
			return nil, err
		}
		_, t := RoundCorners(Resize(img, thumb.X, thumb.Y), 16)
		PasteWithAlpha(card, t, slot.at)

		name := slot.ref.DisplayName
		if name == "" {
			name = slot.ref.Name
		}
		lbl, err := r.NameLabel(name, stageLabelSize)
		if err != nil {
			return nil, err
		}
		lb := lbl.Bounds()
		PasteWithAlpha(card, lbl, image.Pt(slot.at.X+thumb.X/2-lb.Dx()/2, slot.at.Y+thumb.Y-lb.Dy()))
	}

	if in.ContestIcon != "" {
		icon, err := r.static.Image(in.ContestIcon)
		if err != nil {
			return nil, err
		}
		ib := icon.Bounds()
		PasteWithAlpha(card, icon, image.Pt(size.X/2-ib.Dx()/2, left.Y+thumb.Y/2-ib.Dy()/2))
	}

	text, err := newFace(r.fonts.Text, 40)
	if err != nil {
		return nil, err
	}
	defer text.Close()

	textY := left.Y - 60
	drawText(card, text, image.Pt(left.X+10, textY), in.ContestMode, color.White)

	modeX := size.X / 3
	if in.GameModeIcon != "" {
		icon, err := r.static.Image(in.GameModeIcon)
		if err != nil {
			return nil, err
		}
		PasteWithAlpha(card, Resize(icon, 35, 35), image.Pt(modeX-40, textY+10))
	}
	drawText(card, text, image.Pt(modeX, textY), in.GameMode, color.White)

	if in.Desc != "" {
		title, err := newFace(r.fonts.Title, 40)
		if err != nil {
			return nil, err
		}
		defer title.Close()
		drawText(card, title, image.Pt(size.X*2/3, textY-10), in.Desc, color.White)
	}
	return card, nil
}
