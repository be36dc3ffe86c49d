package docstore

// Document is a schema-less field map. Documents are identified by the
// (collection, id) pair they are stored under; the map itself carries no id.
type Document map[string]Value

// Clone returns a deep copy so engine state never aliases caller data.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}

// Merge returns a new document with the fields of other laid over d.
// The merge is shallow: a field present in both is replaced wholesale,
// nested maps are not merged recursively.
func (d Document) Merge(other Document) Document {
	out := make(Document, len(d)+len(other))
	for k, v := range d {
		out[k] = v.Clone()
	}
	for k, v := range other {
		out[k] = v.Clone()
	}
	return out
}

// Equal reports field-wise deep equality.
func (d Document) Equal(other Document) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// FromGoDocument converts a plain field map into a Document.
func FromGoDocument(fields map[string]interface{}) (Document, error) {
	doc := make(Document, len(fields))
	for k, v := range fields {
		converted, err := FromGo(v)
		if err != nil {
			return nil, err
		}
		doc[k] = converted
	}
	return doc, nil
}

// ToGo converts the document back into plain Go data.
func (d Document) ToGo() map[string]interface{} {
	out := make(map[string]interface{}, len(d))
	for k, v := range d {
		out[k] = v.ToGo()
	}
	return out
}
