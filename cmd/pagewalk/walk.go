package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/apicore/pkg/apicall"
	"github.com/Sternrassler/apicore/pkg/pagination"
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// walkOptions are the flags of the walk command
type walkOptions struct {
	scheme       string
	cursorOutput string
	cursorInput  string
	offsetInput  string
	pageInput    string
	nextLink     string
	items        string
	query        []string
	headers      []string
	maxItems     int
	pages        bool
}

var walkOpts walkOptions

// walkCmd represents the walk command
var walkCmd = &cobra.Command{
	Use:   "walk <path> [path...]",
	Short: "Print every item of one or more paginated endpoints",
	Long: `Walk requests <path> relative to api.base_url and follows its pagination
until a page comes back empty or no next page is announced. Several paths are
walked concurrently (pagination.max_concurrency); pages of one path are always
requested in order.

Schemes: auto, cursor, offset, page, link. auto tries cursor, then link, then
offset, and keeps the first one the first response supports.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWalk,
}

func init() {
	f := walkCmd.Flags()
	f.StringVarP(&walkOpts.scheme, "scheme", "s", "auto", "pagination scheme: auto, cursor, offset, page, link")
	f.StringVar(&walkOpts.cursorOutput, "cursor-output", "$response.body#/nextCursor", "response pointer of the next cursor")
	f.StringVar(&walkOpts.cursorInput, "cursor-input", "$request.query#/cursor", "request pointer receiving the cursor")
	f.StringVar(&walkOpts.offsetInput, "offset-input", "$request.query#/offset", "request pointer of the offset")
	f.StringVar(&walkOpts.pageInput, "page-input", "$request.query#/page", "request pointer of the page number")
	f.StringVar(&walkOpts.nextLink, "next-link", "$response.body#/links/next", "response pointer of the next link")
	f.StringVar(&walkOpts.items, "items", "/data", "JSON pointer of the item array in each page")
	f.StringArrayVarP(&walkOpts.query, "query", "q", nil, "query parameter key=value (repeatable)")
	f.StringArrayVarP(&walkOpts.headers, "header", "H", nil, "header key=value (repeatable)")
	f.IntVar(&walkOpts.maxItems, "max-items", 0, "stop after this many items per path (0 = all)")
	f.BoolVar(&walkOpts.pages, "pages", false, "print whole pages instead of items")
}

// page is a decoded response body together with the token that requested it.
type page struct {
	Body  any `json:"body"`
	Token any `json:"token"`
}

func wrapPage(result any, token any) any {
	if result == nil {
		return nil
	}
	return page{Body: result, Token: token}
}

func itemsAt(ptr string) pagination.Extractor[any] {
	return func(p any) []any {
		found, err := gabs.Wrap(p.(page).Body).JSONPointer(ptr)
		if err != nil {
			return nil
		}
		items, _ := found.Data().([]any)
		return items
	}
}

func runWalk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	traversals := make([]*pagination.Data[any], len(args))
	for i, path := range args {
		call, err := newWalkCall(c, path, walkOpts, cfg.API.Retry)
		if err != nil {
			return err
		}
		data, err := apicall.Paginate(call, identity[any], itemsAt(walkOpts.items))
		if err != nil {
			return err
		}
		traversals[i] = data
	}

	out := cmd.OutOrStdout()
	start := time.Now()

	if len(traversals) == 1 {
		n, err := printTraversal(ctx, out, traversals[0], walkOpts)
		logger.Info().Str("path", args[0]).Int("items", n).Dur("duration", time.Since(start)).Msg("Walk complete")
		return err
	}

	collector := pagination.NewCollector[any](pagination.CollectorConfig{
		MaxConcurrency: cfg.Pagination.MaxConcurrency,
		Timeout:        cfg.Pagination.Timeout,
	})
	results, collectErr := collector.CollectAll(ctx, traversals...)

	enc := json.NewEncoder(out)
	for i := range args {
		items, ok := results[i]
		if !ok {
			continue
		}
		if walkOpts.maxItems > 0 && len(items) > walkOpts.maxItems {
			items = items[:walkOpts.maxItems]
		}
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return err
			}
		}
	}
	return collectErr
}

func identity[T any](data *pagination.Data[T]) *pagination.Data[T] {
	return data
}

// printTraversal streams one traversal to out and returns the number of lines written.
func printTraversal(ctx context.Context, out io.Writer, data *pagination.Data[any], opts walkOptions) (int, error) {
	enc := json.NewEncoder(out)
	n := 0

	if opts.pages {
		for p, err := range data.Pages(ctx) {
			if err != nil {
				return n, err
			}
			if err := enc.Encode(p); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	}

	for item, err := range data.All(ctx) {
		if err != nil {
			return n, err
		}
		if err := enc.Encode(item); err != nil {
			return n, err
		}
		n++
		if opts.maxItems > 0 && n >= opts.maxItems {
			break
		}
	}
	return n, nil
}

func newWalkCall(c *client, path string, opts walkOptions, retry bool) (*apicall.APICall, error) {
	strategies, err := buildStrategies(opts)
	if err != nil {
		return nil, err
	}

	b := request.NewBuilder().Path(path)
	if c.auth != nil {
		b.Auth(c.auth)
	}
	query, err := parsePairs(opts.query)
	if err != nil {
		return nil, fmt.Errorf("invalid --query: %w", err)
	}
	for k, v := range query {
		b.QueryParam(request.NewParam(k, v))
	}
	headers, err := parsePairs(opts.headers)
	if err != nil {
		return nil, fmt.Errorf("invalid --header: %w", err)
	}
	for k, v := range headers {
		b.HeaderParam(request.NewParam(k, v))
	}

	return apicall.New(c.global).
		Request(b).
		Response(apicall.NewResponseHandler()).
		EndpointOptions(transport.EndpointOptions{Retry: retry}).
		PaginationStrategies(strategies...), nil
}

func buildStrategies(opts walkOptions) ([]pagination.Strategy, error) {
	cursor := func() (pagination.Strategy, error) {
		return pagination.NewCursor(opts.cursorOutput, opts.cursorInput, wrapPage)
	}
	offset := func() (pagination.Strategy, error) { return pagination.NewOffset(opts.offsetInput, wrapPage) }
	pageNumber := func() (pagination.Strategy, error) { return pagination.NewPage(opts.pageInput, wrapPage) }
	link := func() (pagination.Strategy, error) { return pagination.NewLink(opts.nextLink, wrapPage) }

	var ctors []func() (pagination.Strategy, error)
	switch strings.ToLower(opts.scheme) {
	case "auto", "":
		ctors = append(ctors, cursor, link, offset)
	case "cursor":
		ctors = append(ctors, cursor)
	case "offset":
		ctors = append(ctors, offset)
	case "page":
		ctors = append(ctors, pageNumber)
	case "link":
		ctors = append(ctors, link)
	default:
		return nil, fmt.Errorf("unknown pagination scheme %q", opts.scheme)
	}

	strategies := make([]pagination.Strategy, 0, len(ctors))
	for _, ctor := range ctors {
		s, err := ctor()
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

// parsePairs parses key=value arguments.
func parsePairs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}
