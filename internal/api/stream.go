package api

import (
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// heartbeatInterval keeps idle proxies from closing the stream.
const heartbeatInterval = 15 * time.Second

// subscribeFunc starts a live subscription that calls onChange with a full snapshot.
type subscribeFunc[T any] func(ctx context.Context, onChange func(T)) (repository.Unsubscribe, error)

// streamSnapshots serves a subscription as server-sent events until the client goes away.
// Only the latest pending snapshot is kept; a slow client skips intermediate ones.
func streamSnapshots[T any](c *gin.Context, log *logger.Logger, event string, subscribe subscribeFunc[T]) {
	ctx := c.Request.Context()
	updates := make(chan T, 1)

	unsubscribe, err := subscribe(ctx, func(snapshot T) {
		select {
		case updates <- snapshot:
			return
		default:
		}
		// Replace the stale snapshot. The watcher goroutine is the only sender.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snapshot:
		default:
		}
	})
	if err != nil {
		respondWithError(c, log, err)
		return
	}
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("SSE client gone", "path", c.FullPath(), "error", ctx.Err())
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case snapshot := <-updates:
			c.SSEvent(event, snapshot)
			c.Writer.Flush()
		}
	}
}
