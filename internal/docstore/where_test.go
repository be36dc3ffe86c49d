package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereMatches(t *testing.T) {
	doc := Document{
		"status": String("active"),
		"count":  Int(3),
		"meta":   Map(map[string]Value{"x": Int(1)}),
	}

	assert.True(t, Where(nil).Matches(doc), "empty filter is the universal matcher")
	assert.True(t, Where{"status": String("active")}.Matches(doc))
	assert.True(t, Where{"status": String("active"), "count": Int(3)}.Matches(doc))
	assert.False(t, Where{"status": String("done")}.Matches(doc))
	assert.False(t, Where{"count": Float(3)}.Matches(doc), "kinds must match exactly")
	assert.True(t, Where{"meta": Map(map[string]Value{"x": Int(1)})}.Matches(doc), "deep equality on nested values")
	assert.False(t, Where{"missing": String("x")}.Matches(doc), "absent field never matches a non-null value")
	assert.True(t, Where{"missing": Null()}.Matches(doc), "absent field matches null")
}

func TestWhereCanonicalOrderIndependent(t *testing.T) {
	w1 := Where{}
	w1["b"] = Int(2)
	w1["a"] = String("x")
	w1["c"] = Map(map[string]Value{"z": Int(1), "y": Int(2)})

	w2 := Where{}
	w2["c"] = Map(map[string]Value{"y": Int(2), "z": Int(1)})
	w2["a"] = String("x")
	w2["b"] = Int(2)

	assert.Equal(t, w1.Canonical(), w2.Canonical())
	assert.NotEqual(t, w1.Canonical(), Where{"a": String("x")}.Canonical())
}

// A field name holding the rendering's separator characters must not make
// two different filters render identically.
func TestWhereCanonicalQuotesFieldNames(t *testing.T) {
	tricky := Where{`a"=i1&"b`: Int(2)}
	plain := Where{"a": Int(1), "b": Int(2)}
	assert.NotEqual(t, tricky.Canonical(), plain.Canonical())

	embedded := Where{"a=i1&b": Int(2)}
	assert.NotEqual(t, embedded.Canonical(), plain.Canonical())
}

func TestWhereCanonicalDistinguishesKinds(t *testing.T) {
	assert.NotEqual(t, Where{"a": Int(1)}.Canonical(), Where{"a": Float(1)}.Canonical())
	assert.NotEqual(t, Where{"a": String("1")}.Canonical(), Where{"a": Int(1)}.Canonical())
	assert.NotEqual(t, Where{"a": Bool(true)}.Canonical(), Where{"a": String("true")}.Canonical())
}
