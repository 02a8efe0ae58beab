package pricing

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/janekbaraniewski/tokenledger/internal/core"
)

// LiteLLMURL is the community pricing table. Tests point it at httptest.
var LiteLLMURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

type liteLLMEntry struct {
	InputCostPerToken           *float64 `json:"input_cost_per_token"`
	OutputCostPerToken          *float64 `json:"output_cost_per_token"`
	ReasoningOutputCostPerToken *float64 `json:"reasoning_output_cost_per_token"`
	ReasoningCostPerToken       *float64 `json:"reasoning_cost_per_token"`
	CacheCreationCost           *float64 `json:"cache_creation_input_token_cost"`
	CacheReadCost               *float64 `json:"cache_read_input_token_cost"`
	LiteLLMProvider             string   `json:"litellm_provider"`
}

// Table maps lower-case model keys to prices.
type Table map[string]PriceVector

// ParseLiteLLM extracts Claude and OpenAI models from the raw LiteLLM JSON.
// Each model is stored under its own key and, when free, under its
// normalized name so lookups by normalized model hit exactly. Entries that do
// not decode are skipped.
func ParseLiteLLM(data []byte) (Table, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode litellm pricing: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := make(Table)
	var aliases []string
	for _, key := range keys {
		var entry liteLLMEntry
		if err := json.Unmarshal(raw[key], &entry); err != nil {
			continue
		}
		lower := strings.ToLower(strings.TrimSpace(key))
		if !isRelevantModel(lower, entry.LiteLLMProvider) {
			continue
		}
		if entry.InputCostPerToken == nil && entry.OutputCostPerToken == nil {
			continue
		}
		table[lower] = entry.price()
		aliases = append(aliases, lower)
	}
	// Plain vendor keys claim a normalized alias before provider-qualified
	// ones such as bedrock or vertex copies.
	sort.SliceStable(aliases, func(i, j int) bool {
		return !isQualifiedKey(aliases[i]) && isQualifiedKey(aliases[j])
	})
	for _, key := range aliases {
		norm := core.NormalizeModel(key)
		if norm == "" {
			continue
		}
		if _, taken := table[norm]; !taken {
			table[norm] = table[key]
		}
	}
	return table, nil
}

func isRelevantModel(key, provider string) bool {
	switch {
	case strings.Contains(key, "claude"):
		return true
	case strings.HasPrefix(key, "openai/"), strings.HasPrefix(key, "gpt-"):
		return true
	case provider == "openai" && !strings.Contains(key, "/"):
		return true
	}
	return false
}

func isQualifiedKey(key string) bool {
	return strings.Contains(key, "/") || strings.Contains(key, "anthropic.")
}

func (e liteLLMEntry) price() PriceVector {
	deref := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	p := PriceVector{
		Input:         deref(e.InputCostPerToken),
		Output:        deref(e.OutputCostPerToken),
		CacheCreation: deref(e.CacheCreationCost),
		CacheRead:     deref(e.CacheReadCost),
	}
	switch {
	case e.ReasoningOutputCostPerToken != nil:
		p.Reasoning = *e.ReasoningOutputCostPerToken
	case e.ReasoningCostPerToken != nil:
		p.Reasoning = *e.ReasoningCostPerToken
	default:
		p.Reasoning = p.Output
	}
	return p
}
