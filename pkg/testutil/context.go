package testutil

import (
	"net/http"

	id "revalidation/pkg/domain"
	"revalidation/pkg/requestcontext"
)

// WithSubject puts an authenticated subject on the request context, as
// RequireAuth does. An unparsable ID leaves the request unauthenticated.
func WithSubject(req *http.Request, subjectID string) *http.Request {
	parsed, err := id.ParseSubjectID(subjectID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithSubjectID(req.Context(), parsed))
}
