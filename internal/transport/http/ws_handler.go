package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub             *core.Hub
	log             *zerolog.Logger
	maxMessageBytes int64
	ratePerMinute   int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:             hub,
		log:             logger,
		maxMessageBytes: cfg.MaxMessageBytes,
		ratePerMinute:   cfg.RateLimitPerMinute,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := core.NewClient(utils.NewID())
	if err := h.hub.RegisterClient(client); err != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if errors.Is(err, core.ErrHubStopped) {
			status = websocket.StatusGoingAway
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.ratePerMinute)

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.Allow() {
			metrics.RateLimitHits.Inc()
			if err := h.writeError(ctx, conn, core.ErrCodeRateLimited, "too many messages"); err != nil {
				return err
			}
			continue
		}

		msg, protoErr := inboundToMessage(inbound)
		if protoErr != nil {
			h.log.Debug().Str("client_id", client.ID).Str("code", protoErr.Code).Msg("rejected inbound frame")
			if err := wsjson.Write(ctx, conn, proto.Outbound{
				Event: proto.OutboundEventError,
				Error: protoErr,
			}); err != nil {
				return err
			}
			continue
		}

		if err := h.hub.Submit(ctx, client, msg); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			for _, frame := range outboundsFromEvent(event) {
				if err := wsjson.Write(ctx, conn, frame); err != nil {
					h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, code, msg string) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Event: proto.OutboundEventError,
		Error: &proto.Error{Code: code, Msg: msg},
	})
}
