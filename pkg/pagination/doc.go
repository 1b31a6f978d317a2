// Package pagination walks multi-page responses.
//
// A Strategy knows one paging scheme: where the paging token lives in the
// request, where the next token comes from in the response, and when the
// traversal is over. Four schemes are provided:
//
//	cursor  token read from the response (output pointer), written to the request (input pointer)
//	offset  input += item count of the previous page
//	page    input += 1 while the previous page was not empty
//	link    query string of a next-link merged over the current query
//
// Data drives one traversal. Before the first page it is unresolved: each
// candidate strategy is asked in order for a request, and the first one that
// yields a page wins. Data then locks onto the first strategy that accepts
// the received response and uses only that one until a page comes back
// empty or the strategy cannot continue.
//
// Example usage:
//
//	strategies := []pagination.Strategy{
//		must(pagination.NewCursor("$response.body#/nextCursor", "$request.query#/cursor", wrap)),
//		must(pagination.NewOffset("$request.query#/offset", wrap)),
//	}
//	data, err := pagination.New(call, extractTransactions)
//	for item, err := range data.All(ctx) {
//		...
//	}
//
// All and Pages always start from the first page on a fresh clone, so a
// Data value can be iterated any number of times and from several
// goroutines. Strategy instances carry per-traversal state and are cloned
// for every traversal. Collector drains several independent traversals
// with a bounded worker pool; pages inside one traversal stay sequential.
package pagination
