package breakpoints

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/forem/mediaurl/core/delivery"
	"github.com/forem/mediaurl/core/jcs"
	"github.com/forem/mediaurl/core/metrics"
	"github.com/forem/mediaurl/core/transformation"
)

// Cache stores computed widths by fingerprint. Implementations must be safe
// for concurrent use; concurrent writers of one key may race.
type Cache interface {
	Get(ctx context.Context, key string) ([]int, bool, error)
	Set(ctx context.Context, key string, widths []int) error
}

// Discoverer asks a remote service for content aware breakpoints.
type Discoverer interface {
	Discover(ctx context.Context, key Key, spec Spec) ([]int, error)
}

// Key identifies one asset rendition for caching.
type Key struct {
	PublicID       string `json:"public_id"`
	ResourceType   string `json:"resource_type"`
	DeliveryType   string `json:"type"`
	Transformation string `json:"transformation"`
	Format         string `json:"format"`
}

// Fingerprint is the sha256 of the canonical JSON form of the key.
func (k Key) Fingerprint() (string, error) {
	return jcs.Fingerprint(k)
}

// KeyFor builds the cache key of a locator and transformation chain.
func KeyFor(locator delivery.Locator, chain []transformation.Options) (Key, error) {
	compiled, err := transformation.CompileChain(chain)
	if err != nil {
		return Key{}, err
	}
	resourceType := locator.ResourceType
	if resourceType == "" {
		resourceType = "image"
	}
	deliveryType := locator.DeliveryType
	if deliveryType == "" {
		deliveryType = "upload"
	}
	return Key{
		PublicID:       locator.PublicID,
		ResourceType:   resourceType,
		DeliveryType:   deliveryType,
		Transformation: compiled,
		Format:         locator.Format,
	}, nil
}

type EngineOptions struct {
	Cache Cache
	// CacheName labels cache metrics.
	CacheName  string
	Discoverer Discoverer
	Logger     *slog.Logger
}

// Engine resolves breakpoints through an optional cache and discoverer.
type Engine struct {
	cache      Cache
	cacheName  string
	discoverer Discoverer
	logger     *slog.Logger
	group      singleflight.Group
}

func NewEngine(options EngineOptions) *Engine {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cacheName := options.CacheName
	if cacheName == "" {
		cacheName = "custom"
	}
	return &Engine{
		cache:      options.Cache,
		cacheName:  cacheName,
		discoverer: options.Discoverer,
		logger:     logger,
	}
}

// Breakpoints returns cached widths for key, or resolves and stores them.
// Concurrent misses for one key share a single resolution.
func (e *Engine) Breakpoints(ctx context.Context, key Key, spec Spec) ([]int, error) {
	if len(spec.Widths) > 0 {
		return Compute(spec)
	}
	fingerprint, err := key.Fingerprint()
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		widths, ok, err := e.cache.Get(ctx, fingerprint)
		switch {
		case err != nil:
			metrics.RecordCacheError(e.cacheName, "get")
			e.logger.Warn("breakpoint cache read failed", "fingerprint", fingerprint, "error", err)
		case ok:
			metrics.RecordCacheLookup(e.cacheName, true)
			e.logger.Debug("breakpoint cache hit", "public_id", key.PublicID, "fingerprint", fingerprint)
			return widths, nil
		default:
			metrics.RecordCacheLookup(e.cacheName, false)
			e.logger.Debug("breakpoint cache miss", "public_id", key.PublicID, "fingerprint", fingerprint)
		}
	}

	result, err, _ := e.group.Do(fingerprint, func() (any, error) {
		widths, err := e.resolve(ctx, key, spec)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			if err := e.cache.Set(ctx, fingerprint, widths); err != nil {
				metrics.RecordCacheError(e.cacheName, "set")
				e.logger.Warn("breakpoint cache write failed", "fingerprint", fingerprint, "error", err)
			}
		}
		return widths, nil
	})
	if err != nil {
		return nil, err
	}
	widths := result.([]int)
	return append([]int(nil), widths...), nil
}

func (e *Engine) resolve(ctx context.Context, key Key, spec Spec) ([]int, error) {
	if e.discoverer != nil {
		widths, err := e.discoverer.Discover(ctx, key, spec)
		if err == nil && len(widths) > 0 {
			metrics.RecordDiscovery("ok")
			metrics.RecordBreakpoints(len(widths))
			return widths, nil
		}
		if err != nil {
			metrics.RecordDiscovery("error")
			e.logger.Warn("breakpoint discovery failed, computing locally", "public_id", key.PublicID, "error", err)
		} else {
			metrics.RecordDiscovery("empty")
		}
	}
	widths, err := Compute(spec)
	if err != nil {
		return nil, err
	}
	metrics.RecordBreakpoints(len(widths))
	return widths, nil
}

// SrcSet resolves breakpoints for locator and renders the srcset attribute.
func (e *Engine) SrcSet(ctx context.Context, config delivery.Config, locator delivery.Locator, chain []transformation.Options, spec Spec) (string, []int, error) {
	key, err := KeyFor(locator, chain)
	if err != nil {
		return "", nil, err
	}
	widths, err := e.Breakpoints(ctx, key, spec)
	if err != nil {
		return "", nil, err
	}
	srcset, err := SrcSet(config, locator, chain, widths)
	if err != nil {
		return "", nil, err
	}
	return srcset, widths, nil
}
