// Package fetch resolves named image assets, serving them from the asset
// store and falling back to a remote origin on a cache miss.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/splatcard/assetdb"
)

// Ref identifies a remote asset and the metadata stored alongside it.
type Ref struct {
	Name        string `json:"name"` // cache key
	URL         string `json:"url"`  // origin URL used on a miss
	DisplayName string `json:"display_name"`
	SourceType  string `json:"source_type"`
}

// Store is the subset of *assetdb.Store the fetcher needs.
type Store interface {
	GetImage(ctx context.Context, name string) (assetdb.ImageAsset, bool, error)
	UpsertImage(ctx context.Context, a assetdb.ImageAsset) error
	GetWeapon(ctx context.Context, name string) (assetdb.WeaponRecord, bool, error)
	UpsertWeapon(ctx context.Context, w assetdb.WeaponRecord) error
}

// Fetcher resolves assets through the store and a per-host origin strategy.
type Fetcher struct {
	store Store

	mu     sync.RWMutex
	def    Origin
	routes map[string]Origin

	placeholder image.Image
	group       singleflight.Group
	tracer      trace.Tracer
}

// sharedFetchTimeout bounds a fetch shared by several callers. It runs
// detached from any one caller's context.
const sharedFetchTimeout = 30 * time.Second

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithDefaultOrigin sets the origin used for hosts without a route.
func WithDefaultOrigin(o Origin) Option {
	return func(f *Fetcher) { f.def = o }
}

// WithRoute sends requests for host (and its subdomains) to o.
func WithRoute(host string, o Origin) Option {
	return func(f *Fetcher) { f.routes[normalizeHost(host)] = o }
}

// WithPlaceholder returns img instead of failing when an origin fetch
// fails. The placeholder is never cached.
func WithPlaceholder(img image.Image) Option {
	return func(f *Fetcher) { f.placeholder = img }
}

// New creates a Fetcher backed by store. Unrouted hosts use a PlainOrigin
// unless WithDefaultOrigin says otherwise.
func New(store Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:  store,
		def:    NewPlainOrigin(PlainTimeout),
		routes: make(map[string]Origin),
		tracer: otel.Tracer("github.com/eringen/splatcard/fetch"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Route sends requests for host (and its subdomains) to o.
func (f *Fetcher) Route(host string, o Origin) {
	f.mu.Lock()
	f.routes[normalizeHost(host)] = o
	f.mu.Unlock()
}

func (f *Fetcher) originFor(rawURL string) Origin {
	u, err := url.Parse(rawURL)
	if err != nil {
		return f.def
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	if o, ok := f.routes[normalizeHost(u.Host)]; ok {
		return o
	}
	host := normalizeHost(u.Hostname())
	for host != "" {
		if o, ok := f.routes[host]; ok {
			return o
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return f.def
}

func normalizeHost(h string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}

// Resolve returns the decoded image for ref. Cached bytes are used when
// present; otherwise the asset is fetched, validated and stored. Cached
// bytes that fail to decode are re-fetched when ref has a URL.
func (f *Fetcher) Resolve(ctx context.Context, ref Ref) (image.Image, error) {
	ctx, span := f.tracer.Start(ctx, "fetch.Resolve",
		trace.WithAttributes(attribute.String("asset.name", ref.Name)))
	defer span.End()

	img, err := f.resolve(ctx, ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return img, err
}

func (f *Fetcher) resolve(ctx context.Context, ref Ref) (image.Image, error) {
	asset, ok, err := f.store.GetImage(ctx, ref.Name)
	if err != nil {
		return nil, err
	}
	if ok {
		img, derr := Decode(asset.Data)
		if derr == nil {
			return img, nil
		}
		if ref.URL == "" {
			return nil, &CorruptAssetError{Name: ref.Name, Err: derr}
		}
		log.Printf("fetch: cached asset %q is corrupt, refetching: %v", ref.Name, derr)
	}

	res, err := f.fetchAndStore(ctx, ref)
	if err != nil {
		var fe *FetchError
		if f.placeholder != nil && errors.As(err, &fe) {
			log.Printf("fetch: using placeholder for %q: %v", ref.Name, err)
			return f.placeholder, nil
		}
		return nil, err
	}
	return res.img, nil
}

// ResolveBytes returns the raw stored bytes for ref, fetching them on a miss.
func (f *Fetcher) ResolveBytes(ctx context.Context, ref Ref) ([]byte, error) {
	ctx, span := f.tracer.Start(ctx, "fetch.ResolveBytes",
		trace.WithAttributes(attribute.String("asset.name", ref.Name)))
	defer span.End()

	asset, ok, err := f.store.GetImage(ctx, ref.Name)
	if err != nil {
		return nil, err
	}
	if ok {
		return asset.Data, nil
	}
	res, err := f.fetchAndStore(ctx, ref)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res.data, nil
}

type fetched struct {
	img  image.Image
	data []byte
}

// fetchAndStore fetches ref from its origin, validates the bytes and upserts
// them. Concurrent calls for the same name share one fetch.
func (f *Fetcher) fetchAndStore(ctx context.Context, ref Ref) (fetched, error) {
	v, err := f.shared(ctx, "image:"+ref.Name, func(ctx context.Context) (any, error) {
		img, data, err := f.fetchImage(ctx, ref.Name, ref.URL)
		if err != nil {
			return nil, err
		}
		if err := f.store.UpsertImage(ctx, assetdb.ImageAsset{
			Name:        ref.Name,
			Data:        data,
			DisplayName: ref.DisplayName,
			SourceType:  ref.SourceType,
		}); err != nil {
			return nil, err
		}
		log.Printf("fetch: new image %s (%s)", ref.Name, humanize.Bytes(uint64(len(data))))
		return fetched{img: img, data: data}, nil
	})
	if err != nil {
		return fetched{}, err
	}
	return v.(fetched), nil
}

// shared runs fn once per key across concurrent callers. fn gets a context
// that keeps the first caller's values but not its cancellation; each caller
// stops waiting when its own ctx is done.
func (f *Fetcher) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := f.group.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return fn(sctx)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchImage downloads rawURL and checks the bytes decode as an image.
func (f *Fetcher) fetchImage(ctx context.Context, name, rawURL string) (image.Image, []byte, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, nil, &FetchError{Name: name, Err: errors.New("no origin url")}
	}
	data, err := f.originFor(rawURL).Fetch(ctx, rawURL)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Name = name
			return nil, nil, fe
		}
		return nil, nil, &FetchError{Name: name, URL: rawURL, Err: err}
	}
	img, err := Decode(data)
	if err != nil {
		return nil, nil, &CorruptAssetError{Name: name, Err: err}
	}
	return img, data, nil
}

// WeaponSource describes a weapon as reported upstream, with icon URLs in
// place of icon bytes.
type WeaponSource struct {
	Name               string `json:"name"`
	ImageURL           string `json:"image_url"`
	SubName            string `json:"sub_name"`
	SubImageURL        string `json:"sub_image_url"`
	SpecialName        string `json:"special_name"`
	SpecialImageURL    string `json:"special_image_url"`
	SpecialPoints      int    `json:"special_points"`
	Level              int    `json:"level"`
	Class              string `json:"class"`
	ClassImageURL      string `json:"class_image_url"`
	DisplayName        string `json:"display_name"`
	SubDisplayName     string `json:"sub_display_name"`
	SpecialDisplayName string `json:"special_display_name"`
}

// ResolveWeapon returns the stored record for src.Name, or fetches its
// icons and stores a new record on a miss. The class icon is optional.
func (f *Fetcher) ResolveWeapon(ctx context.Context, src WeaponSource) (assetdb.WeaponRecord, error) {
	ctx, span := f.tracer.Start(ctx, "fetch.ResolveWeapon",
		trace.WithAttributes(attribute.String("weapon.name", src.Name)))
	defer span.End()

	w, ok, err := f.store.GetWeapon(ctx, src.Name)
	if err != nil {
		return assetdb.WeaponRecord{}, err
	}
	if ok {
		return w, nil
	}

	v, err := f.shared(ctx, "weapon:"+src.Name, func(ctx context.Context) (any, error) {
		rec := assetdb.WeaponRecord{
			Name:               src.Name,
			SubName:            src.SubName,
			SpecialName:        src.SpecialName,
			SpecialPoints:      src.SpecialPoints,
			Level:              src.Level,
			Class:              src.Class,
			DisplayName:        src.DisplayName,
			SubDisplayName:     src.SubDisplayName,
			SpecialDisplayName: src.SpecialDisplayName,
		}
		parts := []struct {
			suffix   string
			url      string
			dst      *[]byte
			optional bool
		}{
			{"main", src.ImageURL, &rec.Image, false},
			{"sub", src.SubImageURL, &rec.SubImage, false},
			{"special", src.SpecialImageURL, &rec.SpecialImage, false},
			{"class", src.ClassImageURL, &rec.ClassImage, true},
		}
		for _, p := range parts {
			if p.optional && p.url == "" {
				continue
			}
			_, data, err := f.fetchImage(ctx, src.Name+"/"+p.suffix, p.url)
			if err != nil {
				return nil, err
			}
			*p.dst = data
		}
		if err := f.store.UpsertWeapon(ctx, rec); err != nil {
			return nil, err
		}
		log.Printf("fetch: new weapon %s", src.Name)
		return rec, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return assetdb.WeaponRecord{}, fmt.Errorf("resolve weapon %q: %w", src.Name, err)
	}
	return v.(assetdb.WeaponRecord), nil
}
