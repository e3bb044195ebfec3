package splatcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eringen/splatcard/assetdb"
	"github.com/eringen/splatcard/compose"
)

// ErrInvalidRequest marks card requests that cannot be rendered as given.
var ErrInvalidRequest = errors.New("invalid card request")

// Limits on what a single request may ask the renderer to draw. The
// default sizes of the largest allowed inputs stay under maxCardSide.
const (
	maxCardSide        = 4096
	maxWeapons         = 24
	maxWindows         = 24
	maxRegulationLines = 64
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// RenderCard decodes a JSON card request of the given kind and returns the
// PNG. Requests with a trigger are served from and stored in the render
// cache.
func (a *App) RenderCard(ctx context.Context, kind string, body []byte) (CardResult, error) {
	ctx, span := otel.Tracer("github.com/eringen/splatcard").Start(ctx, "splatcard.RenderCard",
		trace.WithAttributes(attribute.String("card.kind", kind)))
	defer span.End()

	res, err := a.renderCard(ctx, kind, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CardResult{}, err
	}
	span.SetAttributes(attribute.Bool("card.cached", res.Cached), attribute.Int("card.bytes", len(res.PNG)))
	return res, nil
}

type renderFunc func(ctx context.Context) (image.Image, error)

func (a *App) renderCard(ctx context.Context, kind string, body []byte) (CardResult, error) {
	var (
		opts   CardOptions
		render renderFunc
		err    error
	)
	switch kind {
	case KindStage:
		opts, render, err = a.stageCard(body)
	case KindWeapons:
		opts, render, err = a.weaponCard(body)
	case KindEvent:
		opts, render, err = a.eventCard(body)
	case KindEventDesc:
		opts, render, err = a.eventDescCard(body)
	default:
		return CardResult{}, invalid("unknown card kind %q", kind)
	}
	if err != nil {
		return CardResult{}, err
	}
	return a.renderCached(ctx, opts, render)
}

func decodeCard(body []byte, v any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return invalid("empty body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return invalid("decode: %v", err)
	}
	return nil
}

// cardSize checks an explicit width/height. Zero means the card's default.
func cardSize(opts CardOptions) (image.Point, error) {
	if opts.Width < 0 || opts.Height < 0 {
		return image.Point{}, invalid("width and height must not be negative")
	}
	if opts.Width > maxCardSide || opts.Height > maxCardSide {
		return image.Point{}, invalid("width and height must be at most %d", maxCardSide)
	}
	return image.Pt(opts.Width, opts.Height), nil
}

func validateStage(in compose.StageCardInput) error {
	if strings.TrimSpace(in.Left.Name) == "" || strings.TrimSpace(in.Right.Name) == "" {
		return invalid("left.name and right.name are required")
	}
	return nil
}

func (a *App) stageCard(body []byte) (CardOptions, renderFunc, error) {
	var req StageCardRequest
	if err := decodeCard(body, &req); err != nil {
		return CardOptions{}, nil, err
	}
	if err := validateStage(req.StageCardInput); err != nil {
		return CardOptions{}, nil, err
	}
	size, err := cardSize(req.CardOptions)
	if err != nil {
		return CardOptions{}, nil, err
	}
	in := req.StageCardInput
	in.Size = size
	return req.CardOptions, func(ctx context.Context) (image.Image, error) {
		return a.Renderer.StageCard(ctx, in)
	}, nil
}

func (a *App) weaponCard(body []byte) (CardOptions, renderFunc, error) {
	var req WeaponCardRequest
	if err := decodeCard(body, &req); err != nil {
		return CardOptions{}, nil, err
	}
	if len(req.Weapons) == 0 {
		return CardOptions{}, nil, invalid("weapons are required")
	}
	if len(req.Weapons) > maxWeapons {
		return CardOptions{}, nil, invalid("at most %d weapons per card", maxWeapons)
	}
	for i, w := range req.Weapons {
		if strings.TrimSpace(w.Name) == "" {
			return CardOptions{}, nil, invalid("weapons[%d].name is required", i)
		}
	}
	bg, err := ParseHexColor(req.Color)
	if err != nil {
		return CardOptions{}, nil, invalid("color: %v", err)
	}
	size, err := cardSize(req.CardOptions)
	if err != nil {
		return CardOptions{}, nil, err
	}
	return req.CardOptions, func(ctx context.Context) (image.Image, error) {
		records := make([]assetdb.WeaponRecord, 0, len(req.Weapons))
		for _, src := range req.Weapons {
			rec, err := a.Fetcher.ResolveWeapon(ctx, src)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		in := compose.WeaponCardInput{Weapons: records, Size: size}
		if bg != nil {
			in.Color = bg
		}
		return a.Renderer.WeaponCard(in)
	}, nil
}

func (a *App) eventCard(body []byte) (CardOptions, renderFunc, error) {
	var req EventCardRequest
	if err := decodeCard(body, &req); err != nil {
		return CardOptions{}, nil, err
	}
	if err := validateStage(req.Stage); err != nil {
		return CardOptions{}, nil, err
	}
	if len(req.Windows) == 0 {
		return CardOptions{}, nil, invalid("windows are required")
	}
	if len(req.Windows) > maxWindows {
		return CardOptions{}, nil, invalid("at most %d windows per card", maxWindows)
	}
	for i, w := range req.Windows {
		if !w.End.After(w.Start) {
			return CardOptions{}, nil, invalid("windows[%d] ends before it starts", i)
		}
	}
	size, err := cardSize(req.CardOptions)
	if err != nil {
		return CardOptions{}, nil, err
	}
	in := compose.EventCardInput{
		Stage:    req.Stage,
		ModeIcon: req.ModeIcon,
		Windows:  req.Windows,
		Size:     size,
	}
	return req.CardOptions, func(ctx context.Context) (image.Image, error) {
		return a.Renderer.EventCard(ctx, in)
	}, nil
}

func (a *App) eventDescCard(body []byte) (CardOptions, renderFunc, error) {
	var req EventDescRequest
	if err := decodeCard(body, &req); err != nil {
		return CardOptions{}, nil, err
	}
	if strings.TrimSpace(req.Regulation) == "" {
		return CardOptions{}, nil, invalid("regulation is required")
	}
	if n := strings.Count(req.Regulation, "<br />") + 1; n > maxRegulationLines {
		return CardOptions{}, nil, invalid("at most %d regulation lines", maxRegulationLines)
	}
	size, err := cardSize(req.CardOptions)
	if err != nil {
		return CardOptions{}, nil, err
	}
	in := compose.EventDescInput{Regulation: req.Regulation, Size: size}
	return req.CardOptions, func(context.Context) (image.Image, error) {
		return a.Renderer.EventDescCard(in)
	}, nil
}

func (a *App) renderCached(ctx context.Context, opts CardOptions, render renderFunc) (CardResult, error) {
	trigger := strings.TrimSpace(opts.Trigger)
	if trigger != "" {
		e, ok, err := a.Renders.GetRender(ctx, trigger)
		if err != nil {
			return CardResult{}, err
		}
		if ok {
			return CardResult{PNG: e.Data, Cached: true}, nil
		}
	}

	img, err := render(ctx)
	if err != nil {
		return CardResult{}, err
	}
	data, err := compose.EncodePNG(img)
	if err != nil {
		return CardResult{}, err
	}

	if trigger != "" {
		expires := a.now().Add(a.Config.RenderCacheTTL)
		if opts.ExpiresAt != nil {
			expires = *opts.ExpiresAt
		}
		if err := a.Renders.UpsertRender(ctx, assetdb.RenderCacheEntry{
			Trigger:   trigger,
			Data:      data,
			ExpiresAt: expires,
		}); err != nil {
			return CardResult{}, err
		}
		log.Printf("splatcard: cached render %q until %s", trigger, expires.UTC().Format("2006-01-02 15:04"))
	}
	return CardResult{PNG: data}, nil
}
