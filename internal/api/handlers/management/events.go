// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package management

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/events"
)

const (
	// eventBuffer bounds events queued for one slow client.
	eventBuffer = 64
	// keepAliveInterval keeps idle proxies from closing the stream.
	keepAliveInterval = 25 * time.Second
)

// StreamEvents streams registry change events as Server-Sent Events until
// the client disconnects.
func (h *Handler) StreamEvents(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "events_unavailable", "message": "change events are not enabled"})
		return
	}

	ch := make(chan events.ChangeEvent, eventBuffer)
	// Listeners run inside registry mutations, so they must never block.
	sub := h.bus.Subscribe(func(ev events.ChangeEvent) {
		select {
		case ch <- ev:
		default:
			log.WithField("api_id", ev.APIID).Warn("management: event stream client is too slow, dropping event")
		}
	})
	defer sub.Unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"subscription": sub.ID})
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-ch:
			c.SSEvent("change", ev)
			return true
		case <-ticker.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			return true
		}
	})
}
