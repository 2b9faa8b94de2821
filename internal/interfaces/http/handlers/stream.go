// internal/interfaces/http/handlers/stream.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/events"
	"github.com/your-org/storefront-backend/internal/domain/favorites"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamReadLimit  = 512
)

// BadgeUpdate is pushed to the client whenever its cart or favorites change
type BadgeUpdate struct {
	Reason         string    `json:"reason"`
	CartCount      int       `json:"cart_count"`
	FavoritesCount int64     `json:"favorites_count"`
	At             time.Time `json:"at"`
}

// StreamHandler pushes badge counts over a websocket
type StreamHandler struct {
	bus       *events.Bus
	cart      *cart.Service
	favorites *favorites.Service
	upgrader  websocket.Upgrader
	logger    *logrus.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(bus *events.Bus, cartService *cart.Service, favoritesService *favorites.Service, cfg *config.Config, logger *logrus.Logger) *StreamHandler {
	origins := middleware.NewOriginPolicy(cfg.Security.CORSAllowedOrigins)
	return &StreamHandler{
		bus:       bus,
		cart:      cartService,
		favorites: favoritesService,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins.Allows(origin)
			},
		},
	}
}

// Stream handles GET /cart/stream. The client receives a snapshot on connect
// and a fresh one after every change event for its user. Events arriving
// while a push is pending are coalesced into it.
func (h *StreamHandler) Stream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.WithError(err).WithField("user_id", userID).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.WithField("user_id", userID)
	log.Debug("Badge stream opened")

	pending := make(chan string, 1)
	unsubscribe := h.bus.Subscribe(userID, func(_ context.Context, e events.Event) {
		select {
		case pending <- string(e.Type):
		default:
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go h.readPump(conn, done)

	if err := h.push(c.Request.Context(), conn, userID, "snapshot"); err != nil {
		log.WithError(err).Debug("Badge stream closed")
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Debug("Badge stream closed by client")
			return
		case reason := <-pending:
			if err := h.push(c.Request.Context(), conn, userID, reason); err != nil {
				log.WithError(err).Debug("Badge stream closed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so control messages are processed
func (h *StreamHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) push(ctx context.Context, conn *websocket.Conn, userID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cartCount, err := h.cart.GetCount(ctx, userID)
	if err != nil {
		return err
	}
	favoritesCount, err := h.favorites.GetCount(ctx, userID)
	if err != nil {
		return err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(BadgeUpdate{
		Reason:         reason,
		CartCount:      cartCount,
		FavoritesCount: favoritesCount,
		At:             time.Now().UTC(),
	})
}
