package authevents

import (
	"context"

	"go.uber.org/zap"
)

// EmitAsync runs Emit in a goroutine so request handlers are never blocked on
// the broker. A nil emitter is a no-op. The goroutine uses a detached context
// so request cancellation does not abort an in-flight emit.
func EmitAsync(emitter Emitter, logger *zap.Logger, event Event) {
	if emitter == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil && logger != nil {
			logger.Warn("auth event emit failed", zap.String("type", event.Type), zap.Error(err))
		}
	}()
}
