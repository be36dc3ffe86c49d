package docstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the variants a document field value can take.
// Documents are schema-less, so every stored field carries its kind
// explicitly instead of relying on a dynamic type.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
	KindList
	KindMap
	// KindServerTimestamp is the write-time sentinel. It never appears in
	// stored documents; the write path replaces it with a KindTime value.
	KindServerTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindServerTimestamp:
		return "server-timestamp"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged union over the kinds above. Only the field matching
// Kind is meaningful; the rest stay at their zero value.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Time  time.Time
	List  []Value
	Map   map[string]Value
}

func Null() Value { return Value{Kind: KindNull} }
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t} }
func List(items ...Value) Value { return Value{Kind: KindList, List: items} }
func Map(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }
func ServerTimestamp() Value { return Value{Kind: KindServerTimestamp} }

// Equal reports deep equality of two values. Times compare with
// time.Time.Equal so values round-tripped through an encoding still match.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull, KindServerTimestamp:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.Str == other.Str
	case KindTime:
		return v.Time.Equal(other.Time)
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(other.Map) {
			return false
		}
		for k, val := range v.Map {
			o, ok := other.Map[k]
			if !ok || !val.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy. Scalar kinds share nothing with the original
// already; lists and maps are copied recursively.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindList:
		items := make([]Value, len(v.List))
		for i, item := range v.List {
			items[i] = item.Clone()
		}
		return Value{Kind: KindList, List: items}
	case KindMap:
		m := make(map[string]Value, len(v.Map))
		for k, val := range v.Map {
			m[k] = val.Clone()
		}
		return Value{Kind: KindMap, Map: m}
	default:
		return v
	}
}

// appendCanonical writes a deterministic rendering of the value.
// Map entries are emitted in sorted key order, so two equal values always
// render identically regardless of how their maps were populated.
func (v Value) appendCanonical(b *strings.Builder) {
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case KindInt:
		b.WriteString("i")
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		b.WriteString("f")
		b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindString:
		b.WriteString(strconv.Quote(v.Str))
	case KindTime:
		b.WriteString("t")
		b.WriteString(v.Time.UTC().Format(time.RFC3339Nano))
	case KindList:
		b.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			item.appendCanonical(b)
		}
		b.WriteByte(']')
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			v.Map[k].appendCanonical(b)
		}
		b.WriteByte('}')
	case KindServerTimestamp:
		b.WriteString(TimestampSentinel)
	}
}

// Canonical returns the deterministic string form used for subscription keys.
func (v Value) Canonical() string {
	var b strings.Builder
	v.appendCanonical(&b)
	return b.String()
}

// FromGo converts a plain Go value (typically the result of decoding JSON)
// into a Value. The timestamp sentinel string becomes the dedicated
// server-timestamp variant here, so downstream code never has to compare
// against the raw string.
func FromGo(v interface{}) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case float64:
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case string:
		if val == TimestampSentinel {
			return ServerTimestamp(), nil
		}
		return String(val), nil
	case time.Time:
		return Time(val), nil
	case []interface{}:
		items := make([]Value, len(val))
		for i, item := range val {
			converted, err := FromGo(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = converted
		}
		return Value{Kind: KindList, List: items}, nil
	case map[string]interface{}:
		m := make(map[string]Value, len(val))
		for k, item := range val {
			converted, err := FromGo(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = converted
		}
		return Map(m), nil
	default:
		return Value{}, ErrValueUnsupported
	}
}

// ToGo converts a Value back into plain Go data suitable for JSON encoding.
func (v Value) ToGo() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindTime:
		return v.Time.UTC().Format(time.RFC3339Nano)
	case KindList:
		items := make([]interface{}, len(v.List))
		for i, item := range v.List {
			items[i] = item.ToGo()
		}
		return items
	case KindMap:
		m := make(map[string]interface{}, len(v.Map))
		for k, item := range v.Map {
			m[k] = item.ToGo()
		}
		return m
	case KindServerTimestamp:
		return TimestampSentinel
	}
	return nil
}
