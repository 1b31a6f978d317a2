// Package auth provides auth managers and the descriptors that select them.
//
// Managers hold credentials and know how to apply them to a request. They are
// registered by name in request.Environment.AuthManagers. Descriptors are
// attached to an endpoint and decide which managers must be satisfied:
//
//	env.AuthManagers = map[string]request.AuthManager{
//		"bearer": auth.NewBearer(token),
//		"apiKey": auth.NewAPIKeyHeader("X-API-Key", key),
//	}
//	builder.Auth(auth.Or(auth.Single("bearer"), auth.Single("apiKey")))
//
// Single requires one named manager, And requires all of its parts and Or
// applies the first part that is satisfied.
package auth
