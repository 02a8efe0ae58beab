package pricing

import (
	"sort"
	"strings"
	"sync"
)

// Origin says where the resolver's table came from.
type Origin string

const (
	OriginRemote     Origin = "remote"
	OriginCache      Origin = "cache"
	OriginStaleCache Origin = "stale-cache"
	OriginStatic     Origin = "static"
)

var vendorPrefixes = []string{"claude-", "openai/"}

// Resolver looks up prices and memoizes every answer for its lifetime.
type Resolver struct {
	table  Table
	keys   []string
	origin Origin

	mu       sync.Mutex
	resolved map[string]PriceVector
}

func NewResolver(table Table, origin Origin) *Resolver {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Resolver{table: table, keys: keys, origin: origin, resolved: map[string]PriceVector{}}
}

// StaticResolver prices everything from the built-in family table.
func StaticResolver() *Resolver {
	return NewResolver(nil, OriginStatic)
}

func (r *Resolver) Origin() Origin { return r.origin }

func (r *Resolver) TableSize() int { return len(r.table) }

// Price resolves model in order: exact key, key with a vendor prefix added,
// longest substring match, static family fallback.
func (r *Resolver) Price(model string) PriceVector {
	model = strings.ToLower(strings.TrimSpace(model))
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.resolved[model]; ok {
		return p
	}
	p := r.resolve(model)
	r.resolved[model] = p
	return p
}

func (r *Resolver) resolve(model string) PriceVector {
	if model == "" {
		return fallbackPrice(model)
	}
	if p, ok := r.table[model]; ok {
		return withSource(p, model, MethodExact)
	}
	for _, prefix := range vendorPrefixes {
		key := prefix + model
		if p, ok := r.table[key]; ok {
			return withSource(p, key, MethodPrefix)
		}
	}
	if key := r.longestMatch(func(key string) bool { return strings.Contains(model, key) }); key != "" {
		return withSource(r.table[key], key, MethodFuzzy)
	}
	if key := r.longestMatch(func(key string) bool { return strings.Contains(key, model) }); key != "" {
		return withSource(r.table[key], key, MethodFuzzy)
	}
	return fallbackPrice(model)
}

// longestMatch returns the longest key accepted by match; keys are sorted,
// so equal lengths resolve lexicographically.
func (r *Resolver) longestMatch(match func(string) bool) string {
	best := ""
	for _, key := range r.keys {
		if len(key) > len(best) && match(key) {
			best = key
		}
	}
	return best
}

func withSource(p PriceVector, key string, method Method) PriceVector {
	p.Model = key
	p.Method = method
	return p
}
