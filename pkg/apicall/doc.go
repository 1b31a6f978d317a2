// Package apicall ties request building, transport execution and response
// handling into one call, and exposes paginated calls as lazy traversals.
//
// Example usage:
//
//	cfg := apicall.GlobalConfig{
//		Environment: request.Environment{BaseURI: func(string) string { return "https://api.example.com" }},
//		Transport:   httpTransport,
//	}
//
//	call := apicall.New(cfg).
//		Request(request.NewBuilder().Path("/transactions").QueryParam(request.NewParam("limit", 5))).
//		Response(apicall.NewResponseHandler().Deserializer(apicall.JSON[TransactionPage]())).
//		PaginationStrategies(offsetStrategy)
//
//	items, err := apicall.Paginate(call, pagination.NewIterable[Transaction], extractTransactions)
//	for txn, err := range items.All(ctx) {
//		...
//	}
//
// Non-2xx responses are matched against error cases, first the handler's
// own, then the global ones: exact status ("404"), status range ("4XX"),
// then "default".
package apicall
