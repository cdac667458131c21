// Package promptengine implements the stage prompt template language: a
// small Handlebars-like grammar supporting dotted-path variable lookup,
// filter chains, and {{#if}}/{{#each}} blocks, with a bounded, TTL-evicted
// cache of compiled templates in front of the parser.
package promptengine

import (
	"sync/atomic"
	"time"

	"github.com/meow-stack/stageflow/internal/stageerr"
)

// DefaultCacheSize and DefaultCacheTTL are used by NewDefaultEngine.
const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 30 * time.Minute
)

// Engine compiles and renders prompt templates, caching compiled results
// keyed by template source so a stage that re-renders the same template
// across retries or workflow runs doesn't re-parse it every time.
//
// cache is nil when caching is disabled: Compile then recompiles src on
// every call and Stats reports every call as a miss, with no hits, no
// evictions, and no bound on size.
type Engine struct {
	cache *templateCache

	disabledMisses atomic.Int64
}

// NewEngine builds an Engine with a cache holding at most cacheSize
// compiled templates, each served from cache for at most cacheTTL after
// compilation and removed on its next lookup or by the background
// sweeper after that. A cacheTTL of zero disables time-based eviction.
func NewEngine(cacheSize int, cacheTTL time.Duration) (*Engine, error) {
	if cacheSize <= 0 {
		return nil, stageerr.InputInvalid("promptengine: cache size must be positive")
	}
	c, err := newTemplateCache(cacheSize, cacheTTL)
	if err != nil {
		return nil, stageerr.Wrap(stageerr.CodeInputInvalid, "promptengine: failed to build template cache", err)
	}
	return &Engine{cache: c}, nil
}

// NewEngineNoCache builds an Engine that recompiles src on every Compile
// call. Used when configuration disables template caching.
func NewEngineNoCache() *Engine {
	return &Engine{}
}

// NewDefaultEngine builds an Engine using DefaultCacheSize and DefaultCacheTTL.
func NewDefaultEngine() *Engine {
	e, err := NewEngine(DefaultCacheSize, DefaultCacheTTL)
	if err != nil {
		// DefaultCacheSize is a positive constant; NewEngine cannot fail here.
		panic(err)
	}
	return e
}

// Compile returns a CompiledTemplate for src, serving it from cache when
// possible. A malformed template returns a *TemplateError.
func (e *Engine) Compile(src string) (*CompiledTemplate, error) {
	if e.cache == nil {
		e.disabledMisses.Add(1)
		return compile(src)
	}
	if tmpl, ok := e.cache.get(src); ok {
		return tmpl, nil
	}
	tmpl, err := compile(src)
	if err != nil {
		return nil, err
	}
	e.cache.put(src, tmpl)
	return tmpl, nil
}

// Render compiles src (via the cache) and renders it against vars.
func (e *Engine) Render(src string, vars map[string]any) (string, error) {
	tmpl, err := e.Compile(src)
	if err != nil {
		return "", err
	}
	return tmpl.Render(vars), nil
}

// Validate reports whether src is syntactically well-formed without
// populating the cache with it — intended for workflow-definition
// validation at load time, before any execution context exists to render
// against.
func (e *Engine) Validate(src string) error {
	_, err := compile(src)
	return err
}

// Stats reports the engine's compiled-template cache statistics. With
// caching disabled, every call counts as a miss and all other fields stay
// zero.
func (e *Engine) Stats() CacheStats {
	if e.cache == nil {
		return CacheStats{Misses: e.disabledMisses.Load()}
	}
	return e.cache.stats()
}

// Close stops the cache's background TTL sweeper. Safe to call once at
// shutdown; idempotent. A no-op when caching is disabled.
func (e *Engine) Close() {
	if e.cache == nil {
		return
	}
	e.cache.close()
}
