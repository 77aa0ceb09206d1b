package vector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// UnknownFilename is returned for ids absent from a Mapping.
const UnknownFilename = "unknown"

// Mapping is the id-to-filename table persisted beside the index.
type Mapping struct {
	names map[int64]string
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{names: make(map[int64]string)}
}

// Set records filename for id.
func (m *Mapping) Set(id int64, filename string) {
	m.names[id] = filename
}

// Filename returns the filename for id, or UnknownFilename.
func (m *Mapping) Filename(id int64) string {
	if m == nil {
		return UnknownFilename
	}
	if name, ok := m.names[id]; ok {
		return name
	}
	return UnknownFilename
}

// IDs returns all ids in ascending order.
func (m *Mapping) IDs() []int64 {
	ids := make([]int64, 0, len(m.names))
	for id := range m.names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return len(m.names)
}

// Save writes the mapping as a JSON object keyed by decimal id strings, indented by two spaces.
func (m *Mapping) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create mapping dir: %w", err)
	}
	out := make(map[string]string, len(m.names))
	for id, name := range m.names {
		out[strconv.FormatInt(id, 10)] = name
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	return nil
}

// LoadMapping reads a mapping written by Save. A missing file yields an empty mapping.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewMapping(), nil
		}
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	m := NewMapping()
	for k, name := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse mapping id %q: %w", k, err)
		}
		m.names[id] = name
	}
	return m, nil
}
