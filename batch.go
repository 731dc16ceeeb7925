package valmap

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/valmap/valmap/value"
)

// MapColumns evaluates every binding against the supplied input columns
// and returns the mapped output columns. Columns are processed
// concurrently; the built transform is immutable, so this is safe.
//
// Every bound input column must be present in cols. Unbound columns in
// cols are ignored.
func (t *Transformer) MapColumns(ctx context.Context, cols map[string][]value.Value) (map[string][]value.Value, error) {
	for _, b := range t.bindings {
		if _, ok := cols[b.Input]; !ok {
			return nil, fmt.Errorf("input column %q not supplied", b.Input)
		}
	}

	out := make(map[string][]value.Value, len(t.bindings))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, b := range t.bindings {
		in := cols[b.Input]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mapped := t.LookupVector(in)
			mu.Lock()
			out[b.Output] = mapped
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
