package sim

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Dump serializes the full state to canonical JSON. encoding/json emits map
// keys in sorted order, so two states with equal content produce identical
// bytes — the property replay and digest checks rely on.
func (s *State) Dump() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("dump state: %w", err)
	}
	return b, nil
}

// Load replaces the state's contents from a Dump payload. The logger
// survives; everything else is overwritten. Loading is all-or-nothing: a
// malformed payload leaves the state untouched.
func (s *State) Load(data []byte) error {
	var next State
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if next.Templates == nil {
		next.Templates = make(map[string]*Template)
	}
	if next.Events == nil {
		next.Events = make(map[string][]Action)
	}
	if next.Rules == nil {
		next.Rules = defaultRules()
	}
	if next.Screens == nil {
		next.Screens = make(map[string]map[string]any)
	}
	if next.Entities == nil {
		next.Entities = make([]*Entity, 0)
	}
	next.log = s.log
	*s = next
	return nil
}

// Digest returns the xxhash64 of the canonical dump. Two engines that
// stepped identically report identical digests.
func (s *State) Digest() (uint64, error) {
	b, err := s.Dump()
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(b), nil
}

// DigestHex is Digest formatted for wire/tool output.
func (s *State) DigestHex() (string, error) {
	d, err := s.Digest()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", d), nil
}
