package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/events"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
)

const defaultHeartbeat = 15 * time.Second

// Subscriber hands out event subscriptions.
type Subscriber interface {
	Subscribe(name string, buffer int) *events.Subscription
}

// Events streams session events to HTTP clients as Server-Sent Events.
type Events struct {
	subscriber Subscriber
	buffer     int
	heartbeat  time.Duration
	seq        atomic.Uint64
	l          logger.Logger
}

func NewEvents(subscriber Subscriber, buffer int, heartbeat time.Duration, l logger.Logger) *Events {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Events{
		subscriber: subscriber,
		buffer:     buffer,
		heartbeat:  heartbeat,
		l:          l,
	}
}

// Stream godoc
// @Summary      Session event stream
// @Description  Server-Sent Events; each event's name is the event kind and its data the JSON event
// @Tags         Events
// @Produce      text/event-stream
// @Success      200
// @Security     BearerAuth
// @Router       /events [get]
func (h *Events) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_event_stream")

	flusher, ok := w.(http.Flusher)
	if !ok {
		internalErrorResponse(w, "streaming unsupported")
		return
	}

	sub := h.subscriber.Subscribe(fmt.Sprintf("sse-%d", h.seq.Add(1)), h.buffer)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.l.Debug(ctx, "event stream opened", "subscription", sub.Name())
	defer h.l.Debug(ctx, "event stream closed", "subscription", sub.Name())

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.l.Error(wrap.ErrorCtx(ctx, err), "failed to encode event", err, "kind", e.Kind)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
