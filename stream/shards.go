package stream

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/reoring/natcodec/result"
)

// RunShards drains independent pipelines concurrently, one goroutine per
// shard, and hands every result to sink. sink must be safe for concurrent
// use. The first sink error, pipeline error or cancellation of ctx stops
// every shard. Each pipeline needs its own codec graph.
func RunShards[T, M any](ctx context.Context, shards []*Pipeline[T, M], sink func(shard int, r result.Result[T, M]) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range shards {
		g.Go(func() error {
			defer p.Close()
			for p.HasNext() {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, _ := p.Next()
				if err := sink(i, r); err != nil {
					return err
				}
			}
			return p.Err()
		})
	}
	return g.Wait()
}
