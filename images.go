package splatcard

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/splatcard/assetdb"
	"github.com/eringen/splatcard/fetch"
)

const (
	maxAssetWidth = 1024
	maxUploadSize = 10 << 20 // 10MB
	uploadSource  = "upload"
)

// processAsset decodes an uploaded image, scales it down to maxAssetWidth
// when wider, and re-encodes it as PNG so transparency survives.
func processAsset(src io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return nil, fmt.Errorf("file too large (max 10MB)")
	}
	img, err := fetch.Decode(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxAssetWidth {
		newH := h * maxAssetWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxAssetWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// assetName is the form name, or the upload's file name without extension.
func assetName(formName, filename string) string {
	if n := strings.TrimSpace(formName); n != "" {
		return n
	}
	base := filepath.Base(filename)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}

// handleAssetUpload stores an uploaded image under a name, replacing any
// cached asset with that name.
func (a *App) handleAssetUpload(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.String(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return c.String(http.StatusBadRequest, "File too large (max 10MB)")
	}
	name := assetName(c.FormValue("name"), file.Filename)
	if name == "" {
		return c.String(http.StatusBadRequest, "Asset name required")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := processAsset(src)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid image: "+err.Error())
	}

	displayName := strings.TrimSpace(c.FormValue("display_name"))
	if displayName == "" {
		displayName = name
	}
	if err := a.Store.UpsertImage(c.Request().Context(), assetdb.ImageAsset{
		Name:        name,
		Data:        data,
		DisplayName: displayName,
		SourceType:  uploadSource,
	}); err != nil {
		return err
	}
	return redirectWithMessage(c, fmt.Sprintf("Stored asset %s (%s).", name, FormatBytes(int64(len(data)))))
}
