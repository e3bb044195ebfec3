package splatcard

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/splatcard/compose"
	"github.com/eringen/splatcard/fetch"
)

const maxCardRequestBytes = 1 << 20 // 1MB

func (a *App) handleCard(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCardRequestBytes))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "read body").SetInternal(err)
		}
		res, err := a.RenderCard(c.Request().Context(), kind, body)
		if err != nil {
			return cardHTTPError(err)
		}
		if res.Cached {
			c.Response().Header().Set("X-Render-Cache", "hit")
		} else {
			c.Response().Header().Set("X-Render-Cache", "miss")
		}
		return RenderPNG(c, res.PNG)
	}
}

// cardHTTPError maps render failures onto HTTP statuses: bad input is 400,
// a failed or corrupt upstream asset is 502.
func cardHTTPError(err error) error {
	var (
		fe *fetch.FetchError
		ce *fetch.CorruptAssetError
	)
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, compose.ErrNoWeapons):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.As(err, &fe), errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error()).SetInternal(err)
	}
	return err
}

func (a *App) handleAsset(c echo.Context) error {
	name := c.Param("name")
	asset, ok, err := a.Store.GetImage(c.Request().Context(), name)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "asset not found")
	}
	return c.Blob(http.StatusOK, http.DetectContentType(asset.Data), asset.Data)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if he, ok := err.(*echo.HTTPError); !ok || he.Code >= 500 {
			c.Logger().Errorf("api error: %v", err)
		}
		a.Echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
