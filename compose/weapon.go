package compose

import (
	"image"
	"image/color"

	"github.com/eringen/splatcard/assetdb"
	"github.com/eringen/splatcard/fetch"
)

const (
	weaponTileW   = 150
	weaponTileH   = 230
	weaponTileGap = 10
	weaponMain    = 120
	weaponSmall   = 55
)

// WeaponCardInput lists the weapons to draw and the card colour.
type WeaponCardInput struct {
	Weapons []assetdb.WeaponRecord
	Size    image.Point // zero fits the tiles
	Color   color.Color // nil is a dark grey
}

// WeaponCard draws one translucent tile per weapon: main icon, sub and
// special icons beneath it, and the weapon name along the bottom.
func (r *Renderer) WeaponCard(in WeaponCardInput) (*image.RGBA, error) {
	if len(in.Weapons) == 0 {
		return nil, ErrNoWeapons
	}
	bgColor := in.Color
	if bgColor == nil {
		bgColor = color.RGBA{56, 56, 56, 255}
	}
	size := in.Size
	if size.X <= 0 || size.Y <= 0 {
		size = image.Pt((weaponTileW+weaponTileGap)*len(in.Weapons)+weaponTileGap, weaponTileH+2*weaponTileGap)
	}

	_, rounded := RoundCorners(Canvas(size.X, size.Y, bgColor), 20)
	card := image.NewRGBA(rounded.Bounds())
	PasteWithAlpha(card, rounded, image.Point{})

	face, err := newFace(r.fonts.Text, 16)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	_, plate := RoundCorners(Canvas(weaponTileW, weaponTileH, bgColor), 20)
	plateFaded := ChangeAlpha(plate, 60)

	for i, w := range in.Weapons {
		tile := image.NewNRGBA(plateFaded.Bounds())
		copy(tile.Pix, plateFaded.Pix)

		icons := []struct {
			part string
			data []byte
			side int
			at   image.Point
		}{
			{"main", w.Image, weaponMain, image.Pt((weaponTileW-weaponMain)/2, 10)},
			{"sub", w.SubImage, weaponSmall, image.Pt((weaponTileW-weaponMain)/2, 10+weaponMain+10)},
			{"special", w.SpecialImage, weaponSmall, image.Pt((weaponTileW+weaponMain)/2-weaponSmall, 10+weaponMain+10)},
		}
		for _, ic := range icons {
			img, err := fetch.Decode(ic.data)
			if err != nil {
				return nil, &fetch.CorruptAssetError{Name: w.Name + "/" + ic.part, Err: err}
			}
			PasteWithAlpha(tile, Resize(img, ic.side, ic.side), ic.at)
		}

		name := w.DisplayName
		if name == "" {
			name = w.Name
		}
		tw, th := measure(face, name)
		drawText(tile, face, image.Pt((weaponTileW-tw)/2, weaponTileH-th-7), name, color.White)

		PasteWithAlpha(card, tile, weaponTileOffset(i, size.Y))
	}
	return card, nil
}

// weaponTileOffset is the top-left of the i-th tile on a card of height h.
func weaponTileOffset(i, h int) image.Point {
	return image.Pt((weaponTileW+weaponTileGap)*i+weaponTileGap, (h-weaponTileH)/2)
}
