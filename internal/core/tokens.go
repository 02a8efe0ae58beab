package core

// Tokens holds the five canonical token counters. The counters are mutually
// exclusive: a token is recorded in exactly one of them.
type Tokens struct {
	Input         int64 `json:"input"`
	Output        int64 `json:"output"`
	Reasoning     int64 `json:"reasoning"`
	CacheCreation int64 `json:"cache_creation"`
	CacheRead     int64 `json:"cache_read"`
}

// Total is the plain sum of all counters.
func (t Tokens) Total() int64 {
	return t.Input + t.Output + t.Reasoning + t.CacheCreation + t.CacheRead
}

func (t Tokens) IsZero() bool {
	return t == Tokens{}
}

func (t *Tokens) Add(o Tokens) {
	t.Input += o.Input
	t.Output += o.Output
	t.Reasoning += o.Reasoning
	t.CacheCreation += o.CacheCreation
	t.CacheRead += o.CacheRead
}
