package listener

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/refctl/internal/observability"
	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/transport"
)

// Run feeds datagrams from rx into f until ctx ends. onUpdate is called for
// every accepted snapshot; it runs on the receive goroutine.
func (f *Follower) Run(ctx context.Context, rx transport.Receiver, onUpdate func(Update)) error {
	backoff := transport.DefaultBackoff()
	failures := 0
	for {
		dg, err := rx.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				return nil
			}
			failures++
			f.logger.Warn().Err(err).Int("attempt", failures).Msg("listener.Follower.Run receive failed")
			if !sleepCtx(ctx, backoff.Delay(failures, nil)) {
				return nil
			}
			continue
		}
		failures = 0

		kind := protocol.PacketKind(dg.Payload)
		if kind == protocol.KindReturnData {
			continue
		}
		up, err := f.Observe(dg.Payload)
		if err != nil {
			if errors.Is(err, ErrStale) {
				observability.RecordSequenceEvent("stale", 1)
				continue
			}
			observability.RecordDecodeError(kind.String(), protocol.Reason(err))
			f.logger.Debug().Err(err).Stringer("from", dg.From).Msg("listener.Follower.Run discarded datagram")
			continue
		}
		observability.RecordSequenceEvent("lost", up.Lost)
		if onUpdate != nil {
			onUpdate(up)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
