package pricing

import "strings"

type familyPrice struct {
	match []string
	price PriceVector
}

var sonnetPrice = perMillion(3, 15, 15, 3.75, 0.3)

// Ordered most specific first. Rates are USD per million tokens.
var fallbackFamilies = []familyPrice{
	{[]string{"opus-4-5", "opus-4.5"}, perMillion(5, 25, 25, 6.25, 0.5)},
	{[]string{"opus"}, perMillion(15, 75, 75, 18.75, 1.5)},
	{[]string{"sonnet"}, sonnetPrice},
	{[]string{"haiku"}, perMillion(0.8, 4, 4, 1, 0.08)},
	{[]string{"gpt-5", "codex"}, perMillion(1.25, 10, 10, 0, 0.125)},
	{[]string{"gpt-4"}, perMillion(2.5, 10, 10, 0, 0)},
}

// fallbackPrice maps a model onto a static family price; unknown models are
// priced as sonnet.
func fallbackPrice(model string) PriceVector {
	model = strings.ToLower(model)
	p := sonnetPrice
	p.Model = "sonnet"
	for _, fam := range fallbackFamilies {
		if matchesAny(model, fam.match) {
			p = fam.price
			p.Model = fam.match[0]
			break
		}
	}
	p.Method = MethodFallback
	return p
}

func matchesAny(model string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(model, n) {
			return true
		}
	}
	return false
}
