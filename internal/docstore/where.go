package docstore

import (
	"sort"
	"strconv"
	"strings"
)

// Where is a conjunction of exact-match conditions on document fields.
// An empty (or nil) filter matches every document.
type Where map[string]Value

// Matches reports whether doc satisfies every condition. A document that
// lacks a filtered field only matches when the expected value is null.
func (w Where) Matches(doc Document) bool {
	for field, expected := range w {
		actual, ok := doc[field]
		if !ok {
			if expected.Kind == KindNull {
				continue
			}
			return false
		}
		if !actual.Equal(expected) {
			return false
		}
	}
	return true
}

// Canonical renders the filter deterministically: conditions sorted by field
// name, field names quoted, values in their canonical form. Filters that are
// equal as sets of conditions render identically, which is what keeps
// subscription keys stable across construction order — and only those:
// quoting keeps a field name holding separator characters from colliding
// with a different filter's rendering.
func (w Where) Canonical() string {
	fields := make([]string, 0, len(w))
	for field := range w {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(strconv.Quote(field))
		b.WriteByte('=')
		w[field].appendCanonical(&b)
	}
	return b.String()
}

// FromGoWhere converts a plain field map into a filter.
func FromGoWhere(fields map[string]interface{}) (Where, error) {
	w := make(Where, len(fields))
	for k, v := range fields {
		converted, err := FromGo(v)
		if err != nil {
			return nil, err
		}
		w[k] = converted
	}
	return w, nil
}
