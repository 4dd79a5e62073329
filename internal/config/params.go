package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Params is an order-preserving string-keyed map. YAML mapping nodes carry
// their original key order in Node.Content; Params walks that order
// instead of decoding into a plain map, which would scramble it. Order
// matters twice over: parameter flags are emitted in insertion order
// (§4.2), and the merge algorithm updates an existing key's value in
// place while appending genuinely new keys at the end, matching the
// "later overrides earlier" rule in §4.2.
type Params struct {
	keys   []string
	values map[string]interface{}
}

// NewParams returns an empty, ready-to-use Params.
func NewParams() *Params {
	return &Params{values: make(map[string]interface{})}
}

// UnmarshalYAML decodes a YAML mapping node while preserving key order.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	*p = Params{values: make(map[string]interface{})}
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping, got kind %d", node.Kind)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("decode mapping key: %w", err)
		}
		var value interface{}
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("decode value for key %q: %w", key, err)
		}
		p.Set(key, value)
	}
	return nil
}

// MarshalYAML re-emits the mapping in its preserved key order.
func (p *Params) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range p.Keys() {
		keyNode := &yaml.Node{}
		if err := keyNode.Encode(k); err != nil {
			return nil, err
		}
		valNode := &yaml.Node{}
		if err := valNode.Encode(p.values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return p.keys
}

// Len reports the number of entries.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Get returns the value for key and whether it was present.
func (p *Params) Get(key string) (interface{}, bool) {
	if p == nil || p.values == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Set inserts or updates key, appending it to the end only if it is new.
func (p *Params) Set(key string, value interface{}) {
	if p.values == nil {
		p.values = make(map[string]interface{})
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Merge returns a new Params with other layered on top of p: existing
// keys are updated in place (p's ordering is preserved), and keys unique
// to other are appended in other's order. This is the "later overrides
// earlier" context-merge rule from §4.2, applied pairwise across the
// five-stage merge chain.
func (p *Params) Merge(other *Params) *Params {
	result := NewParams()
	if p != nil {
		for _, k := range p.keys {
			result.Set(k, p.values[k])
		}
	}
	if other != nil {
		for _, k := range other.keys {
			result.Set(k, other.values[k])
		}
	}
	return result
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	if p == nil {
		return NewParams()
	}
	out := NewParams()
	for _, k := range p.keys {
		out.Set(k, p.values[k])
	}
	return out
}

// Map returns a plain map snapshot, discarding order. Used wherever only
// value lookup is needed (e.g. hashing, where keys are re-sorted anyway).
func (p *Params) Map() map[string]interface{} {
	out := make(map[string]interface{}, p.Len())
	if p == nil {
		return out
	}
	for k, v := range p.values {
		out[k] = v
	}
	return out
}
