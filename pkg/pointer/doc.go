// Package pointer resolves and updates values addressed by scoped pointers.
//
// A pointer has the form "<scope>#<json pointer>". Request scopes address the
// parameter collections of a request builder, response scopes address the
// body or headers of a received page:
//
//	$request.path#/id         template (path) parameter "id"
//	$request.query#/offset    query parameter "offset"
//	$request.headers#/X-Page  header parameter (case-insensitive)
//	$request.body#/cursor     body field, or form field when no body map is set
//	$response.body#/meta/next JSON pointer into the response body
//	$response.headers#/Link   response header
//	$response.header.Link     response header (short form)
//
// Lookups never fail: a missing field, a container of the wrong shape or an
// unparseable body all report the value as absent. Updates are structural and
// leave the input untouched.
package pointer
