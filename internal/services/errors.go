package services

// ValidationError marks a request rejected for a missing required
// field. Always client-caused, surfaced as HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError marks a lookup that matched no record. Surfaced as
// HTTP 404, distinct from an unmatched route.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}
