package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// cartEvents serves GET /api/cart/events as a Server-Sent Events stream. The
// current cart is sent on connect and again after every change to the
// session's cart, each as a "cart" event carrying the cart view.
func (h *Handler) cartEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.store(w, r)
	lg := zctx.From(ctx)

	changes, cancel := h.bus.Subscribe(s.Key())
	defer cancel()

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		lg.Debug("Cannot clear write deadline", zap.Error(err))
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	send := func() error {
		res := s.Read(ctx)
		e.Reset()
		h.encodeCartView(e, res.Cart)
		if _, err := w.Write([]byte("event: cart\ndata: ")); err != nil {
			return err
		}
		if _, err := w.Write(e.Bytes()); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := send(); err != nil {
		lg.Debug("Event stream closed", zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(h.cfg.Heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := send(); err != nil {
				lg.Debug("Event stream closed", zap.Error(err))
				return
			}
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
