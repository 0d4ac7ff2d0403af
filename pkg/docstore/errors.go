package docstore

import "github.com/pkg/errors"

// Validation errors, raised before any engine call is made.
var (
	// ErrMissingID rejects writes of documents without an id field.
	ErrMissingID = errors.New("document id is missing")

	// ErrInvalidIDList rejects UpdateMany calls with an empty id list.
	ErrInvalidIDList = errors.New("ids must be a non-empty list")

	// ErrNoSelector rejects UpdateMany calls that supply neither a query
	// nor an id list.
	ErrNoSelector = errors.New("either query or ids must be provided")
)
