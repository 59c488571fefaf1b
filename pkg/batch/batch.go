// Package batch fans a slice of encode or decode calls out across
// goroutines. It is the only place in this module that starts
// goroutines — a thin convenience wrapper over the single-record API,
// not a new semantic: each call still runs single-threaded per item,
// reentrant, with no shared state between items.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds goroutines started when a caller passes
// limit <= 0.
const DefaultConcurrency = 8

// EncodeAll runs encodeOne over each item concurrently, bounded by
// limit (DefaultConcurrency if <= 0), and returns results in input
// order. The first error encountered cancels ctx for the remaining
// in-flight calls and is returned; results are undefined in that case.
func EncodeAll[T any](ctx context.Context, items []T, limit int, encodeOne func(context.Context, T) (string, error)) ([]string, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]string, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			out, err := encodeOne(gctx, item)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// DecodeAll runs decodeOne over each credential string concurrently,
// bounded by limit (DefaultConcurrency if <= 0), and returns results in
// input order. The first error encountered cancels ctx for the
// remaining in-flight calls and is returned; results are undefined in
// that case.
func DecodeAll[R any](ctx context.Context, items []string, limit int, decodeOne func(context.Context, string) (R, error)) ([]R, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			out, err := decodeOne(gctx, item)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
