package docstore

// DocumentKeeper contains all operations on collections of documents.
// A missing collection behaves as an empty one for every read; it is created
// lazily by the first write and never has to be created explicitly.
type DocumentKeeper interface {
	// Set replaces the document at (collection, id) wholesale.
	// Top-level server-timestamp values in data are resolved before storing.
	Set(collection, id string, data Document) error

	// Update shallow-merges data onto the existing document, creating it
	// when absent. Top-level server-timestamp values are resolved first.
	Update(collection, id string, data Document) error

	// Delete removes the document if present. Deleting an absent document
	// is not an error, but still notifies watchers of that id.
	Delete(collection, id string) error

	// Get returns the document and true, or a nil document and false when
	// it does not exist.
	Get(collection, id string) (Document, bool, error)

	// GetAll returns the full id to document mapping for the collection.
	// Returns nil when the collection holds no documents.
	GetAll(collection string) (map[string]Document, error)

	// Exists reports whether the document is present.
	Exists(collection, id string) (bool, error)

	// ExistsWhere reports whether at least one document in the collection
	// satisfies the filter. An empty filter matches any document.
	ExistsWhere(collection string, where Where) (bool, error)

	// Query returns every document matching the filter, each annotated with
	// its id. No ordering is guaranteed.
	Query(collection string, where Where) ([]Match, error)

	Close() error
}

// Match is a query result row: the matched document together with its id.
type Match struct {
	ID  string
	Doc Document
}

// GetOr returns the stored document, or def when it does not exist.
func GetOr(k DocumentKeeper, collection, id string, def Document) (Document, error) {
	doc, ok, err := k.Get(collection, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return def, nil
	}
	return doc, nil
}
