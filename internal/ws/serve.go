package ws

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenVerifier resolves the upgrade-time credential to a user id. Rejected
// connections never reach the hub.
type TokenVerifier interface {
	Verify(c echo.Context, token string) (string, error)
}

// Serve upgrades the HTTP connection, authenticates via the `token` query
// parameter, registers the client with the hub, and starts the pumps.
func Serve(h *Hub, convSvc service.ConversationService, verifier TokenVerifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
		}
		uid, err := verifier.Verify(c, token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			log.Printf("ws: upgrade failed: %v", err)
			return nil
		}

		client := &Client{
			hub:     h,
			conn:    conn,
			send:    make(chan []byte, sendBuffer),
			uid:     uid,
			connID:  uuid.NewString(),
			convSvc: convSvc,
			joined:  make(map[uint64]bool),
		}

		h.Register(client)
		go client.writePump()
		go client.readPump()
		return nil
	}
}
