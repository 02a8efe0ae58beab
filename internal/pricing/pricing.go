// Package pricing resolves per-token prices for normalized model names.
package pricing

import "github.com/janekbaraniewski/tokenledger/internal/core"

// Method records how a price was found.
type Method string

const (
	MethodExact    Method = "exact"
	MethodPrefix   Method = "prefix"
	MethodFuzzy    Method = "fuzzy"
	MethodFallback Method = "fallback"
)

// PriceVector holds USD per token for each canonical counter.
type PriceVector struct {
	Input         float64 `json:"input"`
	Output        float64 `json:"output"`
	Reasoning     float64 `json:"reasoning"`
	CacheCreation float64 `json:"cache_creation"`
	CacheRead     float64 `json:"cache_read"`

	// Model is the table key (or fallback family) the price came from.
	Model  string `json:"model"`
	Method Method `json:"method"`
}

func perMillion(input, output, reasoning, cacheCreation, cacheRead float64) PriceVector {
	return PriceVector{
		Input:         input / 1e6,
		Output:        output / 1e6,
		Reasoning:     reasoning / 1e6,
		CacheCreation: cacheCreation / 1e6,
		CacheRead:     cacheRead / 1e6,
	}
}

// Cost is the dot product of the counters and the rates.
func Cost(t core.Tokens, p PriceVector) float64 {
	return float64(t.Input)*p.Input +
		float64(t.Output)*p.Output +
		float64(t.Reasoning)*p.Reasoning +
		float64(t.CacheCreation)*p.CacheCreation +
		float64(t.CacheRead)*p.CacheRead
}
