package config

import (
	"net/http"
	"strings"
	"time"
)

// Cache key strategies understood by the response cache.
var cacheKeyStrategies = map[string]bool{
	"route": true, "route_query": true, "method_route": true,
	"method_route_query": true, "user_route_query": true,
}

// CacheConfig drives the Redis response cache in front of the public event
// and advertisement reads. Writes purge the cached scope they touch, so TTL
// only bounds how long an entry survives a failed purge.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables. Only safe methods can be
// cached; an unknown key strategy falls back to route_query.
func LoadCacheConfig() CacheConfig {
	cc := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      safeMethods(envStr("CACHE_METHODS", http.MethodGet)),
		TTL:          envDur("CACHE_TTL", 10*time.Second),
		KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "route_query")),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if !cacheKeyStrategies[cc.KeyStrategy] {
		cc.KeyStrategy = "route_query"
	}
	if len(cc.Methods) == 0 {
		cc.Enabled = false
	}
	return cc
}

// Cacheable reports whether responses to method may be cached.
func (cc CacheConfig) Cacheable(method string) bool {
	return cc.Methods[strings.ToUpper(method)]
}

func safeMethods(list string) map[string]bool {
	out := map[string]bool{}
	for _, m := range strings.Split(list, ",") {
		switch m = strings.ToUpper(strings.TrimSpace(m)); m {
		case http.MethodGet, http.MethodHead:
			out[m] = true
		}
	}
	return out
}
