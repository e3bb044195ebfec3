package compose

import (
	"context"
	"image"
	"image/color"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

const (
	eventRowHeight = 80
	eventIconSize  = 35
	descRowHeight  = 40
)

// TimeWindow is one scheduled occurrence of an event.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventCardInput is an event's stage card plus its time windows.
type EventCardInput struct {
	Stage    StageCardInput
	ModeIcon string // static image name drawn on each row, optional
	Windows  []TimeWindow
	Size     image.Point // zero fits the rows
}

// eventRowsTop is the y of the first time-window row.
func eventRowsTop(stageH int) int { return 20 + stageH + 20 }

// EventCard draws the stage card followed by one row per time window with
// a status label coloured by where now falls in the window.
func (r *Renderer) EventCard(ctx context.Context, in EventCardInput) (*image.RGBA, error) {
	stage, err := r.StageCard(ctx, in.Stage)
	if err != nil {
		return nil, err
	}
	sb := stage.Bounds()

	size := in.Size
	if size.X <= 0 || size.Y <= 0 {
		size = image.Pt(sb.Dx()+20, eventRowsTop(sb.Dy())+eventRowHeight*len(in.Windows))
	}

	card := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	panel, err := r.static.Image(StaticPanel)
	if err != nil {
		return nil, err
	}
	draw.Draw(card, card.Bounds(), ChangeAlpha(Resize(panel, size.X, size.Y), 70), image.Point{}, draw.Src)
	PasteWithAlpha(card, stage, image.Pt(10, 20))

	var icon image.Image
	if in.ModeIcon != "" {
		src, err := r.static.Image(in.ModeIcon)
		if err != nil {
			return nil, err
		}
		icon = Resize(src, eventIconSize, eventIconSize)
	}

	face, err := newFace(r.fonts.Text, 40)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	now := r.now()
	y := eventRowsTop(sb.Dy())
	for _, w := range in.Windows {
		if icon != nil {
			PasteWithAlpha(card, icon, image.Pt(20, y))
		}
		start, end := w.Start.In(r.loc), w.End.In(r.loc)
		drawText(card, face, image.Pt(20+eventIconSize+10, y), windowText(r.printer, start, end), color.White)

		lineY := y + eventIconSize + 20
		lineEnd := image.Pt(20+size.X-50, lineY)
		DashedLineH(card, image.Pt(20, lineY), lineEnd, color.White, 3, 25)

		st := Classify(w.Start, w.End, now)
		txt := label(r.printer, st.Label())
		tw, _ := measure(face, txt)
		drawText(card, face, image.Pt(lineEnd.X-tw-10, y), txt, st.Color())

		y += eventRowHeight
	}
	return card, nil
}

// EventDescInput is the rule text of an event. Lines are separated by
// "<br />".
type EventDescInput struct {
	Regulation string
	Size       image.Point // zero fits the text
}

// EventDescCard draws the event rules one line per row.
func (r *Renderer) EventDescCard(in EventDescInput) (*image.RGBA, error) {
	lines := strings.Split(in.Regulation, "<br />")
	size := in.Size
	if size.X <= 0 || size.Y <= 0 {
		size = image.Pt(DefaultStageSize.X+20, 30+descRowHeight*len(lines)+20)
	}

	card := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	panel, err := r.static.Image(StaticPanel)
	if err != nil {
		return nil, err
	}
	draw.Draw(card, card.Bounds(), ChangeAlpha(Resize(panel, size.X, size.Y), 60), image.Point{}, draw.Src)

	face, err := newFace(r.fonts.Text, 30)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	y := 30
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			drawText(card, face, image.Pt(20, y), strings.TrimSpace(line), color.White)
		}
		y += descRowHeight
	}
	return card, nil
}
