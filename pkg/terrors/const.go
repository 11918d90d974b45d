package terrors

import "github.com/cockroachdb/errors"

var (
	// ErrConnectionFailure indicates the remote endpoint is unreachable.
	ErrConnectionFailure = errors.New("connection failure")
	// ErrRequestFailure indicates the remote answered with a non-success status or an error field.
	ErrRequestFailure = errors.New("request failure")
	// ErrMalformedResponse indicates the payload doesn't fit the response envelope.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrInvalidData indicates the decoded rows violate the expected contract.
	ErrInvalidData = errors.New("invalid data")
	// ErrConfiguration indicates required config or topology is missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrKeyNotExists .
	ErrKeyNotExists = errors.New("key not exists")
	// ErrTimeout .
	ErrTimeout = errors.New("timed out")
)
