package pointcloud

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// MetadataType is the kind of value a metadata record holds.
type MetadataType int

// Metadata value kinds.
const (
	MetadataString MetadataType = iota
	MetadataReals
	MetadataBlob
)

// MetadataRecord is one keyed value attached to a point source.
type MetadataRecord struct {
	Key         string
	Description string
	Type        MetadataType
	Value       any
}

// Metadata is an ordered keyed collection of records. Adding an existing key replaces its value
// in place.
type Metadata struct {
	records []MetadataRecord
	index   map[string]int
}

// NewMetadata returns an empty collection.
func NewMetadata() *Metadata {
	return &Metadata{index: map[string]int{}}
}

func (md *Metadata) add(rec MetadataRecord) {
	if i, ok := md.index[rec.Key]; ok {
		md.records[i] = rec
		return
	}
	md.index[rec.Key] = len(md.records)
	md.records = append(md.records, rec)
}

// AddString adds a string value.
func (md *Metadata) AddString(key, description, value string) {
	md.add(MetadataRecord{Key: key, Description: description, Type: MetadataString, Value: value})
}

// AddReals adds an array of reals.
func (md *Metadata) AddReals(key, description string, values ...float64) {
	md.add(MetadataRecord{Key: key, Description: description, Type: MetadataReals, Value: append([]float64(nil), values...)})
}

// AddBlob adds opaque bytes.
func (md *Metadata) AddBlob(key, description string, data []byte) {
	md.add(MetadataRecord{Key: key, Description: description, Type: MetadataBlob, Value: append([]byte(nil), data...)})
}

// Len returns the number of records.
func (md *Metadata) Len() int {
	return len(md.records)
}

// Keys returns the record keys in insertion order.
func (md *Metadata) Keys() []string {
	return lo.Map(md.records, func(r MetadataRecord, _ int) string { return r.Key })
}

// KeysWithPrefix returns the keys starting with prefix, sorted.
func (md *Metadata) KeysWithPrefix(prefix string) []string {
	keys := lo.Filter(md.Keys(), func(k string, _ int) bool { return strings.HasPrefix(k, prefix) })
	sort.Strings(keys)
	return keys
}

// Get returns the record for key.
func (md *Metadata) Get(key string) (MetadataRecord, bool) {
	i, ok := md.index[key]
	if !ok {
		return MetadataRecord{}, false
	}
	return md.records[i], true
}

// Has reports whether key is present.
func (md *Metadata) Has(key string) bool {
	_, ok := md.index[key]
	return ok
}

// String returns the string value for key.
func (md *Metadata) String(key string) (string, bool) {
	rec, ok := md.Get(key)
	if !ok || rec.Type != MetadataString {
		return "", false
	}
	return rec.Value.(string), true
}

// Reals returns the real array for key.
func (md *Metadata) Reals(key string) ([]float64, bool) {
	rec, ok := md.Get(key)
	if !ok || rec.Type != MetadataReals {
		return nil, false
	}
	return rec.Value.([]float64), true
}

// Blob returns the bytes for key.
func (md *Metadata) Blob(key string) ([]byte, bool) {
	rec, ok := md.Get(key)
	if !ok || rec.Type != MetadataBlob {
		return nil, false
	}
	return rec.Value.([]byte), true
}

// Remove deletes key, keeping the order of the remaining records.
func (md *Metadata) Remove(key string) {
	i, ok := md.index[key]
	if !ok {
		return
	}
	md.records = append(md.records[:i], md.records[i+1:]...)
	delete(md.index, key)
	for j := i; j < len(md.records); j++ {
		md.index[md.records[j].Key] = j
	}
}

// Merge adds every record of other, replacing records with the same key.
func (md *Metadata) Merge(other *Metadata) {
	if other == nil {
		return
	}
	for _, rec := range other.records {
		md.add(rec)
	}
}

// Records returns a copy of the records in insertion order.
func (md *Metadata) Records() []MetadataRecord {
	return append([]MetadataRecord(nil), md.records...)
}
