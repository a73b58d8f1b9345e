package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"phish-party-service/internal/app"
	"phish-party-service/internal/game"
)

type WSHandler struct {
	service  *app.RoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades HTTP requests to websockets and attaches a lifecycle
// controller for the connecting participant.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("room")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if code == "" || displayName == "" {
		http.Error(w, "missing room or name", http.StatusBadRequest)
		return
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	joined, err := h.service.Join(ctx, code, userID, displayName)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	dispatcher, err := h.service.Dispatcher(code, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	updates, cancel, err := h.service.Subscribe(ctx, code)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Leave(context.Background(), code, userID)

	logger := log.With().Str("room", code).Str("player", userID).Logger()

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	loopDone := make(chan struct{})

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	role := game.RolePlayer
	if joined.HostID == userID {
		role = game.RoleHost
	}
	var ctrl *game.Controller
	opts := append(h.service.ControllerOptions(),
		game.WithLogger(logger),
		game.WithRevealListener(func(question int, phase game.RevealPhase) {
			push(outboundMessage[any]{Type: "reveal", Payload: newRevealPayload(ctrl.Room(), question, phase)})
		}),
	)
	ctrl = game.NewController(userID, role, dispatcher, opts...)
	defer ctrl.Close()

	// The writer is the only goroutine touching conn for writes.
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					logger.Debug().Err(err).Msg("ws write error")
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push(outboundMessage[any]{Type: "joined", Payload: joinedPayload{
		PlayerID: userID,
		IsHost:   role == game.RoleHost,
		Room:     newRoomView(joined, h.service.Now()),
	}})

	// Snapshots are forwarded before the controller sees them so a reveal
	// frame never precedes the room frame it belongs to.
	go func() {
		defer close(loopDone)
		ticker := time.NewTicker(h.service.Timing().PollInterval)
		defer ticker.Stop()
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				push(outboundMessage[any]{Type: "room", Payload: newRoomView(snap, h.service.Now())})
				ctrl.Observe(snap)
			case <-ticker.C:
				ctrl.Tick()
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handle(ctx, ctrl, code, userID, inbound); err != nil {
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
	}

	close(closeSignals)
	<-loopDone
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, ctrl *game.Controller, code, userID string, inbound inboundMessage) error {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		// answers for a question the client no longer shows are dropped silently
		if payload.Question != ctrl.Room().CurrentQuestion {
			return nil
		}
		return ctrl.OnAnswer(ctx, payload.Answer)
	case "start":
		return h.service.Start(ctx, code, userID)
	case "showResults":
		return ctrl.OnShowResults(ctx)
	case "nextQuestion":
		return ctrl.OnNextQuestion(ctx)
	default:
		return errUnsupportedType
	}
}
