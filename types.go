package splatcard

import (
	"time"

	"github.com/eringen/splatcard/assetdb"
	"github.com/eringen/splatcard/compose"
	"github.com/eringen/splatcard/fetch"
)

// Card kinds accepted by RenderCard and the /api/cards/ routes.
const (
	KindStage     = "stage"
	KindWeapons   = "weapons"
	KindEvent     = "event"
	KindEventDesc = "event-desc"
)

// CardOptions are shared by every card request. A non-empty Trigger makes
// the render cacheable under that phrase.
type CardOptions struct {
	Trigger   string     `json:"trigger"`
	ExpiresAt *time.Time `json:"expires_at"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
}

// StageCardRequest renders one rotation slot.
type StageCardRequest struct {
	CardOptions
	compose.StageCardInput
}

// WeaponCardRequest renders a weapon loadout. Color is "#rrggbb".
type WeaponCardRequest struct {
	CardOptions
	Weapons []fetch.WeaponSource `json:"weapons"`
	Color   string               `json:"color"`
}

// EventCardRequest renders an event with its time windows.
type EventCardRequest struct {
	CardOptions
	Stage    compose.StageCardInput `json:"stage"`
	ModeIcon string                 `json:"mode_icon"`
	Windows  []compose.TimeWindow   `json:"windows"`
}

// EventDescRequest renders the rule text of an event.
type EventDescRequest struct {
	CardOptions
	Regulation string `json:"regulation"`
}

// CardResult is a rendered card and whether it came from the render cache.
type CardResult struct {
	PNG    []byte
	Cached bool
}

// Dashboard is the data shown on the admin page.
type Dashboard struct {
	Assets       []assetdb.ImageSummary
	TotalBytes   int64
	CacheBackend string
	Message      string
}
