package splatcard

import (
	"bytes"
	"image/color"
	"strings"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.Color
		wantErr bool
	}{
		{"#383838", color.RGBA{0x38, 0x38, 0x38, 255}, false},
		{"ff8000", color.RGBA{0xff, 0x80, 0x00, 255}, false},
		{"", nil, false},
		{"#fff", nil, true},
		{"#gg0000", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseHexColor(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFilterEmpty(t *testing.T) {
	got := FilterEmpty([]string{" a ", "", "  ", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("FilterEmpty = %v", got)
	}
}

func TestAssetName(t *testing.T) {
	if got := assetName(" Stage A ", "x.png"); got != "Stage A" {
		t.Fatalf("form name = %q", got)
	}
	if got := assetName("", "/tmp/Mincemeat Metalworks.webp"); got != "Mincemeat Metalworks" {
		t.Fatalf("file name = %q", got)
	}
}

func TestProcessAsset(t *testing.T) {
	wide := pngBytes(t, 2048, 100, color.RGBA{1, 2, 3, 255})
	data, err := processAsset(bytes.NewReader(wide))
	if err != nil {
		t.Fatalf("processAsset: %v", err)
	}
	if got := decodePNG(t, data).Bounds().Dx(); got != maxAssetWidth {
		t.Fatalf("width = %d, want %d", got, maxAssetWidth)
	}

	if _, err := processAsset(strings.NewReader("not an image")); err == nil {
		t.Fatalf("expected error for invalid image")
	}
}
