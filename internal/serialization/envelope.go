package serialization

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/born-ml/synth/internal/tensor"
	"github.com/born-ml/synth/internal/version"
	"github.com/vmihailenco/msgpack/v5"
)

// Envelope is the decoded form of a saved plugin.
//
// Attributes hold msgpack-encoded scalar or structured values; Tensors hold
// array state. The two key spaces are disjoint.
type Envelope struct {
	Version    string
	Plugin     string
	Category   string
	CreatedAt  time.Time
	Attributes map[string][]byte
	Tensors    map[string]*tensor.RawTensor
	Metadata   map[string]string
}

// NewEnvelope creates an empty envelope stamped with the running library version.
func NewEnvelope(plugin, category string) *Envelope {
	return &Envelope{
		Version:    version.MajorVersion(),
		Plugin:     plugin,
		Category:   category,
		CreatedAt:  time.Now().UTC(),
		Attributes: make(map[string][]byte),
		Tensors:    make(map[string]*tensor.RawTensor),
		Metadata:   make(map[string]string),
	}
}

// Set encodes value under key, replacing any attribute or tensor with that
// key. Map keys are sorted so equal values encode to equal bytes.
func (e *Envelope) Set(key string, value any) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encode attribute %q: %w", key, err)
	}
	e.setAttribute(key, buf.Bytes())
	return nil
}

// setAttribute stores encoded bytes under key, replacing any tensor with
// that key.
func (e *Envelope) setAttribute(key string, data []byte) {
	if e.Attributes == nil {
		e.Attributes = make(map[string][]byte)
	}
	delete(e.Tensors, key)
	e.Attributes[key] = data
}

// Get decodes the attribute stored under key into out.
func (e *Envelope) Get(key string, out any) error {
	data, ok := e.Attributes[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingAttribute, key)
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode attribute %q: %w", key, err)
	}
	return nil
}

// SetTensor stores t under key, replacing any attribute with that key.
func (e *Envelope) SetTensor(key string, t *tensor.RawTensor) {
	if e.Tensors == nil {
		e.Tensors = make(map[string]*tensor.RawTensor)
	}
	delete(e.Attributes, key)
	e.Tensors[key] = t
}

// Tensor returns the tensor stored under key.
func (e *Envelope) Tensor(key string) (*tensor.RawTensor, error) {
	t, ok := e.Tensors[key]
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingTensor, key)
	}
	return t, nil
}

// Has reports whether key is present as an attribute or a tensor.
func (e *Envelope) Has(key string) bool {
	if _, ok := e.Attributes[key]; ok {
		return true
	}
	_, ok := e.Tensors[key]
	return ok
}

// Keys returns every attribute and tensor key, sorted.
func (e *Envelope) Keys() []string {
	keys := make([]string, 0, len(e.Attributes)+len(e.Tensors))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	for k := range e.Tensors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge copies every key of other into e under prefix. A merged key
// replaces an attribute or tensor of e with the same name.
func (e *Envelope) Merge(prefix string, other *Envelope) {
	for k, v := range other.Attributes {
		e.setAttribute(prefix+k, v)
	}
	for k, v := range other.Tensors {
		e.SetTensor(prefix+k, v)
	}
}

// Extract returns a new envelope holding the keys of e that start with prefix,
// with the prefix removed.
func (e *Envelope) Extract(prefix, plugin, category string) *Envelope {
	out := NewEnvelope(plugin, category)
	out.Version = e.Version
	out.CreatedAt = e.CreatedAt
	for k, v := range e.Attributes {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out.Attributes[k[len(prefix):]] = v
		}
	}
	for k, v := range e.Tensors {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out.Tensors[k[len(prefix):]] = v
		}
	}
	return out
}

// CheckVersion returns an error wrapping ErrVersionMismatch unless the envelope
// was written by a compatible library version.
func CheckVersion(e *Envelope) error {
	if !version.Compatible(e.Version) {
		return fmt.Errorf("%w: saved with %q, running %q", ErrVersionMismatch, e.Version, version.MajorVersion())
	}
	return nil
}
