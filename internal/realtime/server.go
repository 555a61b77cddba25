package realtime

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"coolwatch-server-go/internal/domain/auth"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/config"
	"coolwatch-server-go/internal/platform/logging"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// UserDirectory resolves a token subject against the live user store.
type UserDirectory interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// SecurityAuditor records security-relevant events such as rejected
// handshakes.
type SecurityAuditor interface {
	RecordSecurityEvent(ctx context.Context, action, origin string, details map[string]interface{})
}

// Server authenticates websocket handshakes and hands admitted connections to
// the hub. A connection that fails authentication is rejected before any
// registry state exists for it.
type Server struct {
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
	hub      *Hub
	tokens   TokenVerifier
	users    UserDirectory
	audit    SecurityAuditor
	logger   *logging.Logger
}

// NewServer builds the websocket endpoint handler.
func NewServer(cfg config.RealtimeConfig, hub *Hub, tokens TokenVerifier, users UserDirectory, audit SecurityAuditor, logger *logging.Logger) *Server {
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		hub:    hub,
		tokens: tokens,
		users:  users,
		audit:  audit,
		logger: logger,
	}
}

// HandleHTTP authenticates and upgrades one websocket request.
func (s *Server) HandleHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorTag("WebSocket", "upgrade failed for %s: %v", r.RemoteAddr, err)
		}
		return
	}

	client := NewClient(uuid.NewString(), principal, r.RemoteAddr, conn, ClientOptions{
		SendBufferSize: s.cfg.SendBufferSize,
		WriteTimeout:   s.cfg.WriteTimeout,
		PingInterval:   s.cfg.PingInterval,
		PongTimeout:    s.cfg.PongTimeout,
	}, s.logger)

	go s.hub.Run(client)
}

// authenticate enforces the handshake gate. The client only ever sees a
// generic reason, details go to the security audit trail.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	token := bearerToken(r)
	if token == "" {
		s.reject(w, r, "missing credentials")
		return Principal{}, false
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.reject(w, r, "invalid token")
		return Principal{}, false
	}

	user, err := s.users.FindByID(r.Context(), claims.UserID)
	if err != nil || user == nil || !user.IsActive {
		s.reject(w, r, "unknown or inactive user")
		return Principal{}, false
	}

	return Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, true
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, reason string) {
	if s.logger != nil {
		s.logger.WarnTag("WebSocket", "handshake rejected from %s: %s", r.RemoteAddr, reason)
	}
	if s.audit != nil {
		s.audit.RecordSecurityEvent(r.Context(), "WEBSOCKET_AUTH_FAILED", r.RemoteAddr, map[string]interface{}{
			"reason": reason,
			"path":   r.URL.Path,
		})
	}
	http.Error(w, "authentication required", http.StatusUnauthorized)
}

// bearerToken extracts the credential from the Authorization header, falling
// back to the access_token query parameter for clients that cannot set
// custom headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}
