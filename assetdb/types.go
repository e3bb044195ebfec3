package assetdb

import "time"

// ImageAsset is a named binary image resource fetched from a remote origin.
type ImageAsset struct {
	Name        string
	Data        []byte
	DisplayName string // localized name shown on cards
	SourceType  string // e.g. "stage", "mode", "weapon"
}

// ImageSummary is an ImageAsset without its payload, used for listings.
type ImageSummary struct {
	Name        string
	DisplayName string
	SourceType  string
	Size        int64
}

// RenderCacheEntry is a previously rendered composite keyed by the trigger
// phrase that produced it.
type RenderCacheEntry struct {
	Trigger   string
	Data      []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at now.
// A zero ExpiresAt never expires.
func (e RenderCacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// WeaponRecord holds a weapon's icons and metadata. It is always stored
// and replaced as a whole row.
type WeaponRecord struct {
	Name               string
	Image              []byte
	SubName            string
	SubImage           []byte
	SpecialName        string
	SpecialImage       []byte
	SpecialPoints      int
	Level              int
	Class              string
	ClassImage         []byte
	DisplayName        string
	SubDisplayName     string
	SpecialDisplayName string
}
