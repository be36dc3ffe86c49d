package docstore

import "github.com/pkg/errors"

var (
	ErrCollectionEmpty  = errors.New("collection name cannot be empty")
	ErrDocIDEmpty       = errors.New("document id cannot be empty")
	ErrDataInvalid      = errors.New("document data is invalid")
	ErrValueUnsupported = errors.New("value type is not supported")
	ErrHubClosed        = errors.New("subscription hub is closed")
	ErrStoreClosed      = errors.New("store is closed")
)
