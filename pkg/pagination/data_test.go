package pagination

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/apicore/pkg/pointer"
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

func collect(t *testing.T, data *Data[string]) []string {
	t.Helper()
	var out []string
	for item, err := range data.All(context.Background()) {
		require.NoError(t, err)
		out = append(out, item)
	}
	return out
}

func TestNew_Errors(t *testing.T) {
	_, err := New[string](nil, extract)
	assert.ErrorIs(t, err, ErrMissingCaller)

	_, err = New[string](newFakeCaller(offsetServer(items(3), 5)), nil)
	assert.ErrorIs(t, err, ErrMissingExtractor)
}

func TestData_Schemes(t *testing.T) {
	all := items(12)

	tests := []struct {
		name      string
		caller    *fakeCaller
		wantLock  string
		wantCalls int32
	}{
		{
			name:      "offset",
			caller:    newFakeCaller(offsetServer(all, 5), mustOffset("$request.query#/offset")),
			wantLock:  "offset",
			wantCalls: 4,
		},
		{
			name:      "page",
			caller:    newFakeCaller(pageServer(all, 5), mustPage("$request.query#/page")),
			wantLock:  "page",
			wantCalls: 4,
		},
		{
			name:      "cursor",
			caller:    newFakeCaller(cursorServer(all, 5), mustCursor("$response.body#/next", "$request.query#/cursor")),
			wantLock:  "cursor",
			wantCalls: 3,
		},
		{
			name:      "link",
			caller:    newFakeCaller(linkServer(all, 5), mustLink("$response.body#/links/next")),
			wantLock:  "link",
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := New(tt.caller, extract)
			require.NoError(t, err)

			ctx := context.Background()
			var got []string
			for {
				item, err := data.Next(ctx)
				if errors.Is(err, ErrExhausted) {
					break
				}
				require.NoError(t, err)
				got = append(got, item)
				assert.Equal(t, StateLocked, data.State())
				assert.Equal(t, tt.wantLock, data.LockedStrategy().Name())
			}

			assert.Equal(t, all, got)
			assert.Equal(t, StateExhausted, data.State())
			assert.Equal(t, tt.wantCalls, tt.caller.calls.Load())

			_, err = data.Next(ctx)
			assert.ErrorIs(t, err, ErrExhausted)
			assert.Equal(t, tt.wantCalls, tt.caller.calls.Load())
		})
	}
}

func TestData_LocksFirstApplicableStrategy(t *testing.T) {
	all := items(12)

	t.Run("cursor response locks cursor", func(t *testing.T) {
		caller := newFakeCaller(cursorServer(all, 5),
			mustCursor("$response.body#/next", "$request.query#/cursor"),
			mustOffset("$request.query#/cursor"),
		)
		data, err := New(caller, extract)
		require.NoError(t, err)

		_, err = data.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cursor", data.LockedStrategy().Name())
	})

	t.Run("offset response skips cursor", func(t *testing.T) {
		caller := newFakeCaller(offsetServer(all, 5),
			mustCursor("$response.body#/next", "$request.query#/cursor"),
			mustOffset("$request.query#/offset"),
		)
		data, err := New(caller, extract)
		require.NoError(t, err)

		assert.Nil(t, data.LockedStrategy())
		assert.Equal(t, StateUnresolved, data.State())

		got := collect(t, data)
		assert.Equal(t, all, got)

		_, err = data.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "offset", data.LockedStrategy().Name())
	})

	t.Run("no applicable strategy ends after the first page", func(t *testing.T) {
		caller := newFakeCaller(offsetServer(all, 5),
			mustCursor("$response.body#/next", "$request.query#/cursor"),
		)
		data, err := New(caller, extract)
		require.NoError(t, err)

		got := collect(t, data)
		assert.Equal(t, all[:5], got)
	})
}

func TestData_EmptyFirstPage(t *testing.T) {
	caller := newFakeCaller(offsetServer(nil, 5), mustOffset("$request.query#/offset"))
	data, err := New(caller, extract)
	require.NoError(t, err)

	_, err = data.Next(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, StateExhausted, data.State())
	assert.Empty(t, collect(t, data))
}

func TestData_NilResultEndsTraversal(t *testing.T) {
	caller := newFakeCaller(func(pointer.Params) (*transport.Response, any, error) {
		return jsonResponse(nil), nil, nil
	}, mustOffset("$request.query#/offset"))
	data, err := New(caller, extract)
	require.NoError(t, err)

	_, err = data.Next(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Nil(t, data.LockedStrategy())
}

func TestData_Pages(t *testing.T) {
	caller := newFakeCaller(offsetServer(items(12), 5), mustOffset("$request.query#/offset"))
	data, err := New(caller, extract)
	require.NoError(t, err)

	var tokens []any
	var sizes []int
	for p, err := range data.Pages(context.Background()) {
		require.NoError(t, err)
		tokens = append(tokens, p.(page).Token)
		sizes = append(sizes, len(p.(page).Items))
	}

	assert.Equal(t, []any{0, 5, 10}, tokens)
	assert.Equal(t, []int{5, 5, 2}, sizes)
}

func TestData_AccessorsTrackLastPage(t *testing.T) {
	caller := newFakeCaller(offsetServer(items(12), 5), mustOffset("$request.query#/offset"))
	data, err := New(caller, extract)
	require.NoError(t, err)

	assert.Nil(t, data.LastResponse())
	assert.Same(t, caller.builder, data.RequestBuilder())
	assert.Zero(t, data.PageSize())

	ctx := context.Background()
	for range 6 {
		_, err := data.Next(ctx)
		require.NoError(t, err)
	}

	require.NotNil(t, data.LastResponse())
	assert.Equal(t, 5, data.RequestBuilder().Params().Query["offset"])
	assert.Equal(t, 5, data.PageSize())
	assert.Equal(t, page{Items: items(10)[5:], Token: 5}, data.Page())
}

func TestData_ErrorKeepsPosition(t *testing.T) {
	all := items(12)
	serve := offsetServer(all, 5)
	failed := false
	caller := newFakeCaller(func(p pointer.Params) (*transport.Response, any, error) {
		if p.Query["offset"] == 5 && !failed {
			failed = true
			return nil, nil, errBoom
		}
		return serve(p)
	}, mustOffset("$request.query#/offset"))

	data, err := New(caller, extract)
	require.NoError(t, err)

	ctx := context.Background()
	for range 5 {
		_, err := data.Next(ctx)
		require.NoError(t, err)
	}

	_, err = data.Next(ctx)
	require.ErrorIs(t, err, errBoom)

	item, err := data.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "item_6", item)
}

func TestData_AllStopsOnError(t *testing.T) {
	serve := offsetServer(items(12), 5)
	caller := newFakeCaller(func(p pointer.Params) (*transport.Response, any, error) {
		if p.Query["offset"] == 10 {
			return nil, nil, errBoom
		}
		return serve(p)
	}, mustOffset("$request.query#/offset"))

	data, err := New(caller, extract)
	require.NoError(t, err)

	var got []string
	var gotErr error
	for item, err := range data.All(context.Background()) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, item)
	}

	assert.ErrorIs(t, gotErr, errBoom)
	assert.Len(t, got, 10)
}

func TestData_ApplyErrorIsWrapped(t *testing.T) {
	caller := newFakeCaller(offsetServer(items(3), 5), mustOffset("$request.query#/offset"))
	caller.builder = request.NewBuilder().QueryParam(request.NewParam("token", nil).Required())

	data, err := New(caller, extract)
	require.NoError(t, err)

	_, err = data.Next(context.Background())
	var validationErr *request.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "apply offset pagination")
}

func TestData_BreakStopsFetching(t *testing.T) {
	caller := newFakeCaller(offsetServer(items(12), 5), mustOffset("$request.query#/offset"))
	data, err := New(caller, extract)
	require.NoError(t, err)

	n := 0
	for _, err := range data.All(context.Background()) {
		require.NoError(t, err)
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, int32(1), caller.calls.Load())
}

func TestData_Restartable(t *testing.T) {
	caller := newFakeCaller(pageServer(items(12), 5), mustPage("$request.query#/page"))
	data, err := New(caller, extract)
	require.NoError(t, err)

	first := collect(t, data)
	second := collect(t, data)
	assert.Equal(t, first, second)
	assert.Len(t, first, 12)

	assert.Equal(t, StateUnresolved, data.State())
}

func TestData_ConcurrentTraversals(t *testing.T) {
	all := items(20)
	caller := newFakeCaller(cursorServer(all, 5),
		mustCursor("$response.body#/next", "$request.query#/cursor"),
		mustOffset("$request.query#/offset"),
	)
	data, err := New(caller, extract)
	require.NoError(t, err)

	results := make([][]string, 4)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item, err := range data.All(context.Background()) {
				if err != nil {
					return
				}
				results[i] = append(results[i], item)
			}
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, all, r)
	}
	assert.Equal(t, int32(16), caller.calls.Load())
}

func TestData_CancelledContext(t *testing.T) {
	caller := newFakeCaller(offsetServer(items(12), 5), mustOffset("$request.query#/offset"))
	data, err := New(caller, extract)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = data.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIterable_Collect(t *testing.T) {
	caller := newFakeCaller(linkServer(items(7), 3), mustLink("$response.body#/links/next"))
	data, err := New(caller, extract)
	require.NoError(t, err)

	it := NewIterable(data)
	got, err := it.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, items(7), got)
	assert.Same(t, data, it.Data())

	var pages int
	for _, err := range it.Pages(context.Background()) {
		require.NoError(t, err)
		pages++
	}
	assert.Equal(t, 3, pages)
}
