package docstore

import "strings"

func checkStringEmpty(name string) bool {
	return len(strings.TrimSpace(name)) == 0
}

// ValidateNames rejects empty collection names and document ids before any
// state is touched.
func ValidateNames(collection, id string) error {
	if checkStringEmpty(collection) {
		return ErrCollectionEmpty
	}
	if checkStringEmpty(id) {
		return ErrDocIDEmpty
	}
	return nil
}

// ValidateCollection rejects an empty collection name.
func ValidateCollection(collection string) error {
	if checkStringEmpty(collection) {
		return ErrCollectionEmpty
	}
	return nil
}
