package state

import (
	"fmt"
	"strings"
)

// KeySeparator joins key segments in their encoded form.
const KeySeparator = "/"

// Key is a hierarchical storage key. Encoded keys sort lexicographically by
// their byte form, so every key sharing a prefix is contiguous in the store.
type Key struct {
	segments []string
}

// NewKey builds a key from its segments. Segments must be non-empty and must
// not contain the separator; violating that is a programming error and
// panics.
func NewKey(segments ...string) Key {
	for _, seg := range segments {
		mustValidSegment(seg)
	}
	return Key{segments: append([]string(nil), segments...)}
}

// ParseKey decodes an encoded key.
func ParseKey(raw string) (Key, error) {
	if raw == "" {
		return Key{}, nil
	}
	segments := strings.Split(raw, KeySeparator)
	for _, seg := range segments {
		if seg == "" {
			return Key{}, fmt.Errorf("state: key %q has an empty segment", raw)
		}
	}
	return Key{segments: segments}, nil
}

func mustValidSegment(seg string) {
	if seg == "" || strings.Contains(seg, KeySeparator) {
		panic(fmt.Sprintf("state: invalid key segment %q", seg))
	}
}

// Push returns a new key with seg appended.
func (k Key) Push(seg string) Key {
	mustValidSegment(seg)
	out := make([]string, len(k.segments), len(k.segments)+1)
	copy(out, k.segments)
	return Key{segments: append(out, seg)}
}

// Parent returns the key without its last segment.
func (k Key) Parent() Key {
	if len(k.segments) == 0 {
		return k
	}
	return Key{segments: append([]string(nil), k.segments[:len(k.segments)-1]...)}
}

// Last returns the final segment, or "" for the empty key.
func (k Key) Last() string {
	if len(k.segments) == 0 {
		return ""
	}
	return k.segments[len(k.segments)-1]
}

func (k Key) Segments() []string {
	return append([]string(nil), k.segments...)
}

func (k Key) Len() int {
	return len(k.segments)
}

func (k Key) IsEmpty() bool {
	return len(k.segments) == 0
}

// IsPrefixOf reports whether every segment of k leads o.
func (k Key) IsPrefixOf(o Key) bool {
	if len(k.segments) > len(o.segments) {
		return false
	}
	for i, seg := range k.segments {
		if o.segments[i] != seg {
			return false
		}
	}
	return true
}

func (k Key) Equal(o Key) bool {
	return len(k.segments) == len(o.segments) && k.IsPrefixOf(o)
}

func (k Key) String() string {
	return strings.Join(k.segments, KeySeparator)
}

func (k Key) Bytes() []byte {
	return []byte(k.String())
}

// scanPrefix returns the raw byte prefix matching every strict descendant of
// k.
func (k Key) scanPrefix() []byte {
	if len(k.segments) == 0 {
		return nil
	}
	return []byte(k.String() + KeySeparator)
}
