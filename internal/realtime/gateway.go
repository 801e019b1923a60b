package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/internal/auth"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/presence"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/thread"
	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// signalTimeout bounds the store lookups a single client signal may trigger.
const signalTimeout = 10 * time.Second

// Gateway is the WebSocket server. It owns the hub, runs the in-band
// connection handshake, and feeds typing / mark-read signals to the thread
// service. It runs its own dedicated HTTP server.
type Gateway struct {
	server     *http.Server
	upgrader   websocket.Upgrader
	hub        *Hub
	registry   *presence.Registry
	handshaker *auth.Handshaker
	threads    *thread.Service
	logger     zerolog.Logger
	instanceID string
}

// NewGateway creates and wires up the WebSocket gateway. It installs the
// registry's transition hooks so presence changes are broadcast globally.
func NewGateway(
	port string,
	allowedOrigins []string,
	hub *Hub,
	registry *presence.Registry,
	handshaker *auth.Handshaker,
	threads *thread.Service,
	logger zerolog.Logger,
) (*Gateway, error) {
	if hub == nil || registry == nil || handshaker == nil || threads == nil {
		return nil, fmt.Errorf("hub, registry, handshaker and thread service are all required")
	}

	instanceID := uuid.NewString()
	gwLogger := logger.With().Str("component", "Gateway").Str("instance", instanceID).Logger()

	g := &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		hub:        hub,
		registry:   registry,
		handshaker: handshaker,
		threads:    threads,
		logger:     gwLogger,
		instanceID: instanceID,
	}

	registry.SetTransitionHooks(
		func(accountID string) { g.broadcastPresence(realtime.EventUserOnline, accountID) },
		func(accountID string) { g.broadcastPresence(realtime.EventUserOffline, accountID) },
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.connectHandler)
	g.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	return g, nil
}

// Handler exposes the gateway's HTTP handler, for tests that want to host
// it on their own listener.
func (g *Gateway) Handler() http.Handler {
	return g.server.Handler
}

// Start runs the HTTP server for WebSocket connections.
func (g *Gateway) Start(ctx context.Context) error {
	g.logger.Info().Str("addr", g.server.Addr).Msg("WebSocket gateway starting...")
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket gateway failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info().Msg("Shutting down WebSocket gateway...")
	if err := g.server.Shutdown(ctx); err != nil {
		g.logger.Error().Err(err).Msg("WebSocket gateway shutdown failed.")
		return err
	}
	g.logger.Info().Msg("WebSocket gateway shut down.")
	return nil
}

// connectHandler upgrades the request and runs the connection lifecycle.
// The connection starts unauthenticated; the client's first useful signal
// is the in-band handshake credential.
func (g *Gateway) connectHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to upgrade connection.")
		return
	}

	client := newClient(uuid.NewString(), conn, g.logger)
	g.hub.Register(client)
	g.logger.Debug().Str("connection", client.id).Msg("Connection opened, awaiting handshake.")

	go client.writePump()
	client.readPump(g)
}

// handleSignal dispatches one client signal. Unauthenticated connections
// may only attempt the handshake; everything else is silently dropped.
func (g *Gateway) handleSignal(c *Client, signal *realtime.ClientSignal) {
	ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
	defer cancel()

	switch signal.Type {
	case realtime.SignalAuthenticate:
		g.handleAuthenticate(ctx, c, signal.Credential)

	case realtime.SignalTyping:
		accountID := c.Account()
		if accountID == "" {
			return
		}
		g.threads.SendTyping(ctx, signal.ThreadID, accountID, signal.IsTyping)

	case realtime.SignalMarkRead:
		accountID := c.Account()
		if accountID == "" {
			return
		}
		if err := g.threads.MarkRead(ctx, signal.ThreadID, accountID); err != nil {
			g.logger.Warn().Err(err).Str("account", accountID).Str("thread", signal.ThreadID).
				Msg("Failed to mark thread read.")
		}

	default:
		g.logger.Debug().Str("signal", signal.Type).Msg("Ignoring unknown client signal.")
	}
}

// handleAuthenticate runs one handshake attempt. An auth-error leaves the
// connection open for retry; blocked and deleted accounts get their typed
// signal and a forced close.
func (g *Gateway) handleAuthenticate(ctx context.Context, c *Client, credential string) {
	if c.Account() != "" {
		g.logger.Debug().Str("account", c.Account()).Msg("Ignoring handshake on already-bound connection.")
		return
	}

	result := g.handshaker.Verify(ctx, credential)
	switch result.State {
	case auth.StateOK:
		c.bindAccount(result.AccountID)
		g.hub.Bind(c, result.AccountID)
		g.registry.Increment(ctx, result.AccountID)
		g.sendAuthSignal(c, realtime.EventAuthOK, &realtime.AuthResultPayload{AccountID: result.AccountID})
		g.logger.Info().Str("account", result.AccountID).Str("connection", c.id).Msg("Connection authenticated.")

	case auth.StateError:
		g.sendAuthSignal(c, realtime.EventAuthError, nil)

	case auth.StateBlocked:
		g.sendAuthSignal(c, realtime.EventAuthBlocked, nil)
		c.close()

	case auth.StateDeleted:
		g.sendAuthSignal(c, realtime.EventAuthDeleted, nil)
		c.close()
	}
}

// dropClient tears down a connection's state without affecting others. A
// disconnect mid-handshake leaves no presence trace because the account was
// never bound.
func (g *Gateway) dropClient(c *Client) {
	g.hub.Unregister(c)
	if accountID := c.Account(); accountID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
		g.registry.Decrement(ctx, accountID)
		cancel()
		g.logger.Info().Str("account", accountID).Str("connection", c.id).Msg("Connection closed.")
	}
	c.close()
}

func (g *Gateway) broadcastPresence(eventType realtime.EventType, accountID string) {
	evt, err := realtime.NewEvent(eventType, nil, &realtime.PresencePayload{AccountID: accountID})
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to build presence event.")
		return
	}
	g.hub.BroadcastGlobal(evt)
}

func (g *Gateway) sendAuthSignal(c *Client, eventType realtime.EventType, payload any) {
	evt, err := realtime.NewEvent(eventType, nil, payload)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to build auth signal.")
		return
	}
	c.sendEvent(evt)
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowedSet[origin]
		return ok
	}
}
