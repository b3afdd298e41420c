package recorder

import "errors"

var (
	// ErrAPIKeyRequired is returned when the client is created without
	// a credential.
	ErrAPIKeyRequired = errors.New("recorder: api key must be a non-empty string")
)
