package docstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEqual(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

	assert.True(t, Null().Equal(Null()))
	assert.True(t, Int(3).Equal(Int(3)))
	assert.False(t, Int(3).Equal(Float(3)), "int and float are distinct kinds")
	assert.True(t, Time(now).Equal(Time(now.In(time.FixedZone("x", 3600)))), "times compare by instant")
	assert.True(t, List(Int(1), String("a")).Equal(List(Int(1), String("a"))))
	assert.False(t, List(Int(1)).Equal(List(Int(1), Int(2))))
	assert.True(t, Map(map[string]Value{"a": Int(1)}).Equal(Map(map[string]Value{"a": Int(1)})))
	assert.False(t, Map(map[string]Value{"a": Int(1)}).Equal(Map(map[string]Value{"a": Int(2)})))
}

func TestValueCloneIsDeep(t *testing.T) {
	original := Map(map[string]Value{"list": List(Int(1))})
	clone := original.Clone()
	clone.Map["list"].List[0] = Int(99)
	assert.True(t, original.Map["list"].List[0].Equal(Int(1)))
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]interface{}{
		"n":    float64(2), // json decodes numbers as float64
		"f":    2.5,
		"s":    "text",
		"ts":   TimestampSentinel,
		"list": []interface{}{true, nil},
	})
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind)
	assert.Equal(t, KindInt, v.Map["n"].Kind, "whole floats normalize to int")
	assert.Equal(t, KindFloat, v.Map["f"].Kind)
	assert.Equal(t, KindString, v.Map["s"].Kind)
	assert.Equal(t, KindServerTimestamp, v.Map["ts"].Kind, "sentinel string becomes the tagged variant")
	assert.Equal(t, KindBool, v.Map["list"].List[0].Kind)
	assert.Equal(t, KindNull, v.Map["list"].List[1].Kind)

	_, err = FromGo(struct{}{})
	assert.ErrorIs(t, err, ErrValueUnsupported)
}

func TestValueJSONRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 123456789, time.UTC)
	doc := Document{
		"null":  Null(),
		"bool":  Bool(true),
		"int":   Int(-7),
		"float": Float(2.5),
		"str":   String("hello"),
		"time":  Time(now),
		"list":  List(Int(1), Map(map[string]Value{"x": Null()})),
		"ts":    ServerTimestamp(),
	}

	payload, err := json.Marshal(doc)
	require.NoError(t, err)
	var decoded Document
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.True(t, doc.Equal(decoded))
}

func TestDocumentMergeIsShallow(t *testing.T) {
	base := Document{
		"keep": Int(1),
		"meta": Map(map[string]Value{"x": Int(1), "y": Int(2)}),
	}
	merged := base.Merge(Document{
		"meta": Map(map[string]Value{"x": Int(9)}),
		"new":  String("v"),
	})

	assert.True(t, merged["keep"].Equal(Int(1)))
	assert.True(t, merged["new"].Equal(String("v")))
	assert.True(t, merged["meta"].Equal(Map(map[string]Value{"x": Int(9)})), "nested maps replace, not merge")
	// The inputs stay untouched.
	assert.True(t, base["meta"].Equal(Map(map[string]Value{"x": Int(1), "y": Int(2)})))
}

func TestResolveTimestampsShallow(t *testing.T) {
	now := time.Unix(5000, 0)
	resolved := ResolveTimestamps(Document{
		"top":    ServerTimestamp(),
		"nested": Map(map[string]Value{"inner": ServerTimestamp()}),
		"plain":  String("x"),
	}, FixedClock(now))

	assert.Equal(t, KindTime, resolved["top"].Kind)
	assert.True(t, resolved["top"].Time.Equal(now))
	assert.Equal(t, KindServerTimestamp, resolved["nested"].Map["inner"].Kind)
	assert.Equal(t, KindString, resolved["plain"].Kind)
}
