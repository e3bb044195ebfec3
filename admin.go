package splatcard

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return Render(c, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleClearRenders(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	n, err := a.Renders.ClearRenders(c.Request().Context())
	if err != nil {
		return err
	}
	return redirectWithMessage(c, fmt.Sprintf("Cleared %d cached renders.", n))
}

func (a *App) handlePurgeRenders(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	n, err := a.Renders.PurgeExpiredRenders(c.Request().Context(), a.now())
	if err != nil {
		return err
	}
	return redirectWithMessage(c, fmt.Sprintf("Purged %d expired renders.", n))
}

func redirectWithMessage(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	assets, err := a.Store.ListImages(c.Request().Context())
	if err != nil {
		return err
	}
	d := Dashboard{
		Assets:       assets,
		CacheBackend: a.Config.RenderCacheBackend,
		Message:      msg,
	}
	for _, s := range assets {
		d.TotalBytes += s.Size
	}
	return Render(c, a.Views.AdminDashboard(d, CsrfToken(c)))
}
