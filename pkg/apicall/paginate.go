package apicall

import "github.com/Sternrassler/apicore/pkg/pagination"

// Paginate turns call into a lazy traversal and hands it to factory.
// extract returns the items of one wrapped page.
//
//	items, err := apicall.Paginate(call, pagination.NewIterable[Transaction], extract)
func Paginate[T, R any](call *APICall, factory func(*pagination.Data[T]) R, extract pagination.Extractor[T]) (R, error) {
	var zero R
	if call == nil {
		return zero, pagination.ErrMissingCaller
	}
	data, err := pagination.New[T](call, extract)
	if err != nil {
		return zero, err
	}
	return factory(data), nil
}
