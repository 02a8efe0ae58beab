package core

import (
	"regexp"
	"strings"
)

var (
	reTrailingDate   = regexp.MustCompile(`[-_@](20\d{2})(0[1-9]|1[0-2])([0-2]\d|3[01])$`)
	reBedrockVersion = regexp.MustCompile(`-v\d+(:\d+)?$`)
	reBedrockRegion  = regexp.MustCompile(`^(us|eu|apac|global)\.`)
)

// NormalizeModel maps a raw model identifier onto the form used for pricing
// and grouping. Vendor prefixes ("anthropic.", "openai/", "models/"), a
// trailing -YYYYMMDD release date and the vendor-internal "claude-" prefix
// are removed:
//
//	anthropic.claude-3-5-sonnet-20241022 -> 3-5-sonnet
//	claude-opus-4-5-20251101             -> opus-4-5
//	gpt-4                                -> gpt-4
func NormalizeModel(raw string) string {
	model := strings.ToLower(strings.TrimSpace(raw))
	if model == "" {
		return ""
	}
	model = strings.TrimPrefix(model, "models/")
	model = strings.Trim(model, "/")

	if parts := strings.SplitN(model, "/", 2); len(parts) == 2 && isKnownVendor(parts[0]) {
		model = parts[1]
	}
	model = reBedrockRegion.ReplaceAllString(model, "")
	if rest, ok := strings.CutPrefix(model, "anthropic."); ok {
		model = reBedrockVersion.ReplaceAllString(rest, "")
	}

	if stripped := reTrailingDate.ReplaceAllString(model, ""); stripped != "" {
		model = stripped
	}
	if rest, ok := strings.CutPrefix(model, "claude-"); ok && rest != "" {
		model = rest
	}
	return model
}

func isKnownVendor(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "anthropic", "openai", "google", "mistral", "xai", "deepseek", "groq", "meta", "openrouter":
		return true
	default:
		return false
	}
}
