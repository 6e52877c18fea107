package calls

import (
	"encoding/json"
	"sort"
)

// ChannelSet is the set of notification channels already used to escalate a
// call. Modeling it as a set (not a slice with manual dedup) makes the
// grow-only invariant structural: the only mutating operation is union.
//
// JSON encodes as a sorted array so persisted records are stable.

type ChannelSet map[string]struct{}

func NewChannelSet(channels ...string) ChannelSet {
	s := ChannelSet{}
	for _, c := range channels {
		if c != "" {
			s[c] = struct{}{}
		}
	}
	return s
}

func (s ChannelSet) Empty() bool { return len(s) == 0 }

func (s ChannelSet) Has(channel string) bool {
	_, ok := s[channel]
	return ok
}

// Union returns a new set containing every channel of s and other.
// It never mutates its receiver; merge(S, {}) == S.
func (s ChannelSet) Union(other ChannelSet) ChannelSet {
	out := ChannelSet{}
	for c := range s {
		out[c] = struct{}{}
	}
	for c := range other {
		out[c] = struct{}{}
	}
	return out
}

// List returns the channels in sorted order.
func (s ChannelSet) List() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s ChannelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

func (s *ChannelSet) UnmarshalJSON(data []byte) error {
	var channels []string
	if err := json.Unmarshal(data, &channels); err != nil {
		return err
	}
	*s = NewChannelSet(channels...)
	return nil
}
