package compose

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eringen/splatcard/assetdb"
	"github.com/eringen/splatcard/fetch"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Canvas(w, h, c)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

var panelColor = color.RGBA{20, 30, 60, 255}

func staticFS(t *testing.T) fstest.MapFS {
	t.Helper()
	return fstest.MapFS{
		"background.png":  {Data: pngBytes(t, 64, 32, color.RGBA{40, 40, 40, 255})},
		"rounded.png":     {Data: pngBytes(t, 64, 64, panelColor)},
		"time-header.png": {Data: pngBytes(t, 64, 16, color.RGBA{90, 0, 90, 255})},
		"Splat Zones.png": {Data: pngBytes(t, 20, 20, color.RGBA{255, 255, 0, 255})},
		"Anarchy.png":     {Data: pngBytes(t, 40, 40, color.RGBA{255, 128, 0, 255})},
	}
}

type stubResolver struct {
	mu     sync.Mutex
	images map[string]image.Image
	calls  map[string]int
	err    error
}

func (s *stubResolver) Resolve(_ context.Context, ref fetch.Ref) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[ref.Name]++
	if s.err != nil {
		return nil, s.err
	}
	img, ok := s.images[ref.Name]
	if !ok {
		return nil, &fetch.FetchError{Name: ref.Name, Status: 404, Err: errors.New("not found")}
	}
	return img, nil
}

func setupRenderer(t *testing.T, res AssetResolver, opts ...RendererOption) *Renderer {
	t.Helper()
	r, err := NewRenderer(res, NewFSStatic(staticFS(t)), nil, opts...)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

var (
	red  = color.RGBA{220, 20, 20, 255}
	blue = color.RGBA{20, 20, 220, 255}
)

func stageInput() StageCardInput {
	return StageCardInput{
		Left:         fetch.Ref{Name: "Stage A", DisplayName: "Stage A"},
		Right:        fetch.Ref{Name: "Stage B", DisplayName: "Stage B"},
		ContestMode:  "Anarchy Battle",
		ContestIcon:  "Anarchy",
		GameMode:     "Splat Zones",
		GameModeIcon: "Splat Zones",
	}
}

func stageResolver() *stubResolver {
	return &stubResolver{images: map[string]image.Image{
		"Stage A": Canvas(80, 45, red),
		"Stage B": Canvas(80, 45, blue),
	}}
}

func near(a, b uint8) bool { return int(a)-int(b) < 8 && int(b)-int(a) < 8 }

func TestStageCardEndToEnd(t *testing.T) {
	res := stageResolver()
	r := setupRenderer(t, res)

	card, err := r.StageCard(context.Background(), stageInput())
	if err != nil {
		t.Fatalf("StageCard: %v", err)
	}
	if got := card.Bounds().Size(); got != DefaultStageSize {
		t.Fatalf("size = %v, want %v", got, DefaultStageSize)
	}

	thumb, left, right := stageLayout(DefaultStageSize)
	for _, tt := range []struct {
		name string
		at   image.Point
		want color.RGBA
	}{
		{"left", left, red},
		{"right", right, blue},
	} {
		p := tt.at.Add(image.Pt(thumb.X/2, thumb.Y/4))
		c := card.RGBAAt(p.X, p.Y)
		if c.A != 255 || !near(c.R, tt.want.R) || !near(c.B, tt.want.B) {
			t.Fatalf("%s thumbnail pixel %v = %+v, want %+v", tt.name, p, c, tt.want)
		}
	}
	face, err := newFace(r.fonts.Text, stageLabelSize)
	if err != nil {
		t.Fatalf("newFace: %v", err)
	}
	tw, _ := measure(face, "Stage A")
	face.Close()
	// Left edge of the left name plate, sized for the label font, is black.
	p := image.Pt(left.X+thumb.X/2-(tw+16)/2+3, left.Y+thumb.Y-15)
	if c := card.RGBAAt(p.X, p.Y); c.R > 8 || c.G > 8 || c.B > 8 {
		t.Fatalf("name plate pixel %v = %+v, want black", p, c)
	}

	if res.calls["Stage A"] != 1 || res.calls["Stage B"] != 1 {
		t.Fatalf("resolve calls = %v", res.calls)
	}
	if c := card.RGBAAt(0, 0); c.A != 0 {
		t.Fatalf("card corner alpha = %d, want 0", c.A)
	}
}

func TestStageCardCustomSize(t *testing.T) {
	r := setupRenderer(t, stageResolver())
	in := stageInput()
	in.Size = image.Pt(800, 300)

	card, err := r.StageCard(context.Background(), in)
	if err != nil {
		t.Fatalf("StageCard: %v", err)
	}
	if got := card.Bounds().Size(); got != in.Size {
		t.Fatalf("size = %v, want %v", got, in.Size)
	}
}

func TestStageCardFetchErrorFailsComposite(t *testing.T) {
	res := &stubResolver{images: map[string]image.Image{"Stage A": Canvas(8, 8, red)}}
	r := setupRenderer(t, res)

	_, err := r.StageCard(context.Background(), stageInput())
	var fe *fetch.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *fetch.FetchError", err)
	}
	if fe.Name != "Stage B" {
		t.Fatalf("failed asset = %q, want Stage B", fe.Name)
	}
}

func TestStageCardMissingStatic(t *testing.T) {
	r := setupRenderer(t, stageResolver())
	in := stageInput()
	in.ContestIcon = "Unknown Mode"

	if _, err := r.StageCard(context.Background(), in); err == nil {
		t.Fatalf("expected error for missing static image")
	}
}

func TestNameLabel(t *testing.T) {
	r := setupRenderer(t, stageResolver())
	face, err := newFace(r.fonts.Text, 20)
	if err != nil {
		t.Fatalf("newFace: %v", err)
	}
	tw, _ := measure(face, "Stage A")
	face.Close()

	lbl, err := r.NameLabel("Stage A", 20)
	if err != nil {
		t.Fatalf("NameLabel: %v", err)
	}
	if got := lbl.Bounds().Size(); got != image.Pt(tw+16, 30) {
		t.Fatalf("size = %v, want %v", got, image.Pt(tw+16, 30))
	}
	if a := lbl.NRGBAAt(0, 0).A; a != 0 {
		t.Fatalf("corner alpha = %d, want 0", a)
	}
	if a := lbl.NRGBAAt(lbl.Bounds().Dx()/2, 1).A; a != 255 {
		t.Fatalf("top edge alpha = %d, want 255", a)
	}
}

func TestTimeHeader(t *testing.T) {
	r := setupRenderer(t, stageResolver())
	img, err := r.TimeHeader(image.Pt(600, 80), "05-01", "10:00", "12:00")
	if err != nil {
		t.Fatalf("TimeHeader: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(600, 80) {
		t.Fatalf("size = %v", got)
	}
	if c := img.RGBAAt(2, 2); c.R != 90 || c.B != 90 {
		t.Fatalf("background pixel = %+v", c)
	}
}

func weaponRecord(t *testing.T, name string, main color.Color) assetdb.WeaponRecord {
	return assetdb.WeaponRecord{
		Name:         name,
		DisplayName:  name,
		Image:        pngBytes(t, 64, 64, main),
		SubImage:     pngBytes(t, 32, 32, color.RGBA{0, 200, 0, 255}),
		SpecialImage: pngBytes(t, 32, 32, color.RGBA{200, 0, 200, 255}),
	}
}

func TestWeaponCard(t *testing.T) {
	r := setupRenderer(t, stageResolver())
	in := WeaponCardInput{Weapons: []assetdb.WeaponRecord{
		weaponRecord(t, "Splattershot", red),
		weaponRecord(t, "Splat Roller", blue),
	}}

	card, err := r.WeaponCard(in)
	if err != nil {
		t.Fatalf("WeaponCard: %v", err)
	}
	want := image.Pt(160*2+10, 250)
	if got := card.Bounds().Size(); got != want {
		t.Fatalf("size = %v, want %v", got, want)
	}

	for i, main := range []color.RGBA{red, blue} {
		p := weaponTileOffset(i, want.Y).Add(image.Pt(75, 70))
		c := card.RGBAAt(p.X, p.Y)
		if !near(c.R, main.R) || !near(c.B, main.B) || c.A != 255 {
			t.Fatalf("weapon %d main icon pixel = %+v, want %+v", i, c, main)
		}
	}
}

func TestWeaponCardErrors(t *testing.T) {
	r := setupRenderer(t, stageResolver())

	if _, err := r.WeaponCard(WeaponCardInput{}); !errors.Is(err, ErrNoWeapons) {
		t.Fatalf("err = %v, want ErrNoWeapons", err)
	}

	w := weaponRecord(t, "Broken", red)
	w.SubImage = []byte("not an image")
	_, err := r.WeaponCard(WeaponCardInput{Weapons: []assetdb.WeaponRecord{w}})
	var ce *fetch.CorruptAssetError
	if !errors.As(err, &ce) || ce.Name != "Broken/sub" {
		t.Fatalf("err = %v, want CorruptAssetError for Broken/sub", err)
	}
}

// hasColor reports whether any pixel of img inside r is exactly c.
func hasColor(img *image.RGBA, r image.Rectangle, c color.RGBA) bool {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				return true
			}
		}
	}
	return false
}

func TestEventCardRows(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := setupRenderer(t, stageResolver(),
		WithClock(func() time.Time { return now }),
		WithLocation(time.UTC))

	in := EventCardInput{
		Stage:    stageInput(),
		ModeIcon: "Splat Zones",
		Windows: []TimeWindow{
			{Start: now.Add(-4 * time.Hour), End: now.Add(-2 * time.Hour)},
			{Start: now.Add(-time.Hour), End: now.Add(time.Hour)},
			{Start: now.Add(2 * time.Hour), End: now.Add(4 * time.Hour)},
		},
	}
	card, err := r.EventCard(context.Background(), in)
	if err != nil {
		t.Fatalf("EventCard: %v", err)
	}

	top := eventRowsTop(DefaultStageSize.Y)
	want := image.Pt(DefaultStageSize.X+20, top+3*eventRowHeight)
	if got := card.Bounds().Size(); got != want {
		t.Fatalf("size = %v, want %v", got, want)
	}

	lineEnd := 20 + want.X - 50
	for i, st := range []Status{Ended, InProgress, NotStarted} {
		y := top + i*eventRowHeight
		row := image.Rect(lineEnd-300, y, lineEnd, y+eventIconSize+15)
		if !hasColor(card, row, st.Color()) {
			t.Fatalf("row %d: no %v label pixels", i, st)
		}
		icon := card.RGBAAt(20+eventIconSize/2, y+eventIconSize/2)
		if icon.R < 240 || icon.G < 240 || icon.B > 20 {
			t.Fatalf("row %d: mode icon pixel = %+v", i, icon)
		}
	}
}

func TestEventDescCardSkipsBlankRows(t *testing.T) {
	r := setupRenderer(t, stageResolver())
	card, err := r.EventDescCard(EventDescInput{Regulation: "Rule one<br /><br />Rule three"})
	if err != nil {
		t.Fatalf("EventDescCard: %v", err)
	}
	if got := card.Bounds().Dy(); got != 30+3*descRowHeight+20 {
		t.Fatalf("height = %d", got)
	}

	white := color.RGBA{255, 255, 255, 255}
	rows := []bool{true, false, true}
	for i, filled := range rows {
		y := 30 + i*descRowHeight
		r := image.Rect(20, y, 400, y+descRowHeight)
		if got := hasColor(card, r, white); got != filled {
			t.Fatalf("row %d has text = %v, want %v", i, got, filled)
		}
	}
	if c := card.RGBAAt(5, 5); c.A != 153 {
		t.Fatalf("panel alpha = %d, want 153", c.A)
	}
}

func TestFSStatic(t *testing.T) {
	s := NewFSStatic(staticFS(t))

	a, err := s.Image(StaticBackground)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	b, err := s.Image(StaticBackground)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if a != b {
		t.Fatalf("expected cached image on second load")
	}
	if _, err := s.Image("missing"); err == nil {
		t.Fatalf("expected error for missing image")
	}
}

func TestLabels(t *testing.T) {
	if got := MatchLanguage("zh-CN"); got != language.SimplifiedChinese {
		t.Fatalf("MatchLanguage(zh-CN) = %v", got)
	}
	if got := MatchLanguage("not a tag!"); got != language.English {
		t.Fatalf("MatchLanguage(invalid) = %v", got)
	}

	zh := message.NewPrinter(language.SimplifiedChinese)
	if got := label(zh, Ended.Label()); got != "已结束" {
		t.Fatalf("zh Ended = %q", got)
	}

	en := message.NewPrinter(language.English)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	got := windowText(en, start, start.Add(2*time.Hour))
	if want := "01-01 Mon  10:00 - 01-01 12:00"; got != want {
		t.Fatalf("windowText = %q, want %q", got, want)
	}
}
