package pointcloud

import (
	"strings"

	"github.com/samber/lo"
)

// Schema is an ordered collection of uniquely named channels. It is immutable once built.
type Schema struct {
	channels []Channel
	index    map[string]int
}

// NewSchema builds a schema. Names are case sensitive; a repeated name fails with
// ErrDuplicateName.
func NewSchema(channels ...Channel) (*Schema, error) {
	names := lo.Map(channels, func(c Channel, _ int) string { return c.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return nil, NewDuplicateNameError(dups[0])
	}

	index := make(map[string]int, len(channels))
	for i, name := range names {
		index[name] = i
	}
	return &Schema{channels: append([]Channel(nil), channels...), index: index}, nil
}

// MustSchema is NewSchema for statically known channel lists. It panics on error.
func MustSchema(channels ...Channel) *Schema {
	schema, err := NewSchema(channels...)
	if err != nil {
		panic(err)
	}
	return schema
}

// Len returns the number of channels.
func (s *Schema) Len() int {
	return len(s.channels)
}

// Channel returns the i-th channel.
func (s *Schema) Channel(i int) Channel {
	return s.channels[i]
}

// Channels returns a copy of the channel list.
func (s *Schema) Channels() []Channel {
	return append([]Channel(nil), s.channels...)
}

// Names returns the channel names in order.
func (s *Schema) Names() []string {
	return lo.Map(s.channels, func(c Channel, _ int) string { return c.Name })
}

// IndexOf returns the position of the named channel.
func (s *Schema) IndexOf(name string) (int, bool) {
	idx, ok := s.index[name]
	return idx, ok
}

// Lookup returns the named channel.
func (s *Schema) Lookup(name string) (Channel, bool) {
	idx, ok := s.index[name]
	if !ok {
		return Channel{}, false
	}
	return s.channels[idx], true
}

// Has reports whether the named channel is present.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Subset returns a schema holding the named channels in the requested order.
func (s *Schema) Subset(names ...string) (*Schema, error) {
	channels := make([]Channel, 0, len(names))
	for _, name := range names {
		c, ok := s.Lookup(name)
		if !ok {
			return nil, NewUnknownChannelError(name)
		}
		channels = append(channels, c)
	}
	return NewSchema(channels...)
}

// Filter returns a schema holding the channels for which keep returns true, in schema order.
func (s *Schema) Filter(keep func(Channel) bool) *Schema {
	return MustSchema(lo.Filter(s.channels, func(c Channel, _ int) bool { return keep(c) })...)
}

// HasValidXYZ reports whether X, Y and Z are present as FLOAT64 channels.
func (s *Schema) HasValidXYZ() bool {
	for _, name := range []string{ChannelX, ChannelY, ChannelZ} {
		c, ok := s.Lookup(name)
		if !ok || c.DataType != Float64 {
			return false
		}
	}
	return true
}

// Equal reports whether both schemas hold equal channels in the same order.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.channels) != len(other.channels) {
		return false
	}
	for i := range s.channels {
		if !s.channels[i].Equal(other.channels[i]) {
			return false
		}
	}
	return true
}

// SameNames reports whether both schemas name the same channels in the same order, regardless of
// datatype.
func (s *Schema) SameNames(other *Schema) bool {
	if len(s.channels) != len(other.channels) {
		return false
	}
	return lo.EveryBy(lo.Range(len(s.channels)), func(i int) bool {
		return s.channels[i].Name == other.channels[i].Name
	})
}

func (s *Schema) String() string {
	parts := lo.Map(s.channels, func(c Channel, _ int) string { return c.Name + ":" + c.DataType.String() })
	return "[" + strings.Join(parts, " ") + "]"
}
