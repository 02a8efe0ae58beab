package config

import (
	"bytes"

	"github.com/BurntSushi/toml"
)

// TOMLParser adapts BurntSushi/toml to koanf's Parser interface.
type TOMLParser struct{}

func TOML() *TOMLParser { return &TOMLParser{} }

func (p *TOMLParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *TOMLParser) Marshal(o map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
