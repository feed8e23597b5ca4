package pagination

import (
	"context"
	"log/slog"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// Searcher issues one searchObjects call.
type Searcher interface {
	SearchObjects(ctx context.Context, req *wire.SearchObjectsRequest) (*wire.SearchObjectsResponse, error)
}

// Reducer turns the rows of one page into results. An error stops the
// search.
type Reducer[T any] func(ctx context.Context, rows []wire.Row) ([]T, error)

// Query describes a search.
type Query struct {
	// SessionID is the session the search runs in.
	SessionID string

	// Class is the object class to search (default: "entry").
	Class string

	// SelectProps are the properties returned per row (default: id).
	SelectProps []string

	// ParentObjectID restricts the search to children of an object.
	ParentObjectID uint32

	// Offset is the first row (default: 0).
	Offset uint32

	// PageSize is the rows requested per call (default: 50).
	PageSize uint32
}

// Stats describes a finished search.
type Stats struct {
	Pages int
	Rows  int

	// Reported is the numOfResults of the last page.
	Reported uint32
}

// Engine runs searches through a retry wrapper.
type Engine struct {
	searcher Searcher
	retrier  *connection.Retrier
	logger   *slog.Logger
}

// NewEngine creates an engine. A nil retrier makes a default one for an
// unnamed host.
func NewEngine(searcher Searcher, retrier *connection.Retrier, logger *slog.Logger) *Engine {
	if retrier == nil {
		retrier = connection.NewRetrier("", connection.DefaultRetryConfig())
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{searcher: searcher, retrier: retrier, logger: logger}
}

// Search pages through q, reducing each page and accumulating the results.
// The offset advances by the rows each page returned; a page without rows
// ends the search.
func Search[T any](ctx context.Context, e *Engine, q Query, reduce Reducer[T]) ([]T, Stats, error) {
	if q.Class == "" {
		q.Class = "entry"
	}
	if len(q.SelectProps) == 0 {
		q.SelectProps = []string{"id"}
	}
	if q.PageSize == 0 {
		q.PageSize = connection.DefaultMaxObjectPerCall
	}

	var (
		results []T
		stats   Stats
		offset  = q.Offset
	)
	for {
		req := &wire.SearchObjectsRequest{
			SessionID:      q.SessionID,
			FromClass:      q.Class,
			ParentObjectID: q.ParentObjectID,
			SelectProps:    q.SelectProps,
			RowOffset:      offset,
			RowCount:       q.PageSize,
		}
		resp, err := connection.Retry(ctx, e.retrier, wire.ActionSearchObjects, func(ctx context.Context) (*wire.SearchObjectsResponse, error) {
			return e.searcher.SearchObjects(ctx, req)
		})
		if err != nil {
			return results, stats, err
		}

		status := resp.ReturnValue
		if !status.IsOK() && !status.IsEndOfDirectory() {
			return results, stats, &connection.OperationFailedError{
				Host:      e.retrier.Host(),
				Operation: wire.ActionSearchObjects,
				Err:       &wire.StatusError{Action: wire.ActionSearchObjects, Status: status},
			}
		}

		stats.Pages++
		stats.Rows += len(resp.Rows)
		stats.Reported = resp.NumResults
		e.logger.Debug("search page",
			"class", q.Class,
			"offset", offset,
			"rows", len(resp.Rows),
			"reported", resp.NumResults,
			"status", status)

		if reduce != nil && len(resp.Rows) > 0 {
			items, err := reduce(ctx, resp.Rows)
			if err != nil {
				return results, stats, err
			}
			results = append(results, items...)
		}

		if status.IsEndOfDirectory() || len(resp.Rows) == 0 {
			return results, stats, nil
		}
		offset += uint32(len(resp.Rows))
	}
}

// Rows is a reducer that keeps the rows unchanged.
func Rows(_ context.Context, rows []wire.Row) ([]wire.Row, error) {
	return rows, nil
}
