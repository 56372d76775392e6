package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims is the identity carried by a validated token
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Agent maps the claims onto the console owner. The subject is the stable id;
// email stands in when a provider omits it.
func (c *Claims) Agent() types.Agent {
	id := c.Subject
	if id == "" {
		id = c.Email
	}
	name := c.Name
	if name == "" {
		name = c.Email
	}
	if name == "" {
		name = id
	}
	return types.Agent{ID: id, DisplayName: name}
}

type contextKey string

const agentContextKey contextKey = "agent"

var (
	ErrMissingToken = errors.New("missing token")
	ErrTokenExpired = errors.New("token expired")
	ErrNoSubject    = errors.New("token has no subject")
)

// Options configures an Authenticator
type Options struct {
	SkipAuth        bool
	VerifySignature bool
	// JWTSecret enables HS256 verification and takes precedence over OIDC
	JWTSecret  string
	OIDCIssuer string
	DevAgent   types.Agent
	Logger     zerolog.Logger
}

// Authenticator validates bearer tokens and resolves the calling agent
type Authenticator struct {
	opts   Options
	logger zerolog.Logger

	mu   sync.Mutex
	jwks keyfunc.Keyfunc
	now  func() time.Time
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(opts Options) *Authenticator {
	if opts.DevAgent.ID == "" {
		opts.DevAgent = types.Agent{ID: "dev-agent", DisplayName: "Dev Agent"}
	}
	return &Authenticator{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}
}

// Middleware rejects requests without a valid token and stores the agent in
// the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if a.opts.SkipAuth {
			a.logger.Debug().Str("agent_id", a.opts.DevAgent.ID).Msg("SKIP_AUTH enabled - using dev agent")
			next.ServeHTTP(w, r.WithContext(WithAgent(r.Context(), a.opts.DevAgent)))
			return
		}

		agent, err := a.Authenticate(r)
		if err != nil {
			a.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAgent(r.Context(), agent)))
	})
}

// Authenticate resolves the agent behind a request
func (a *Authenticator) Authenticate(r *http.Request) (types.Agent, error) {
	tokenString := extractToken(r)
	if tokenString == "" {
		return types.Agent{}, ErrMissingToken
	}

	claims, err := a.validateToken(tokenString)
	if err != nil {
		return types.Agent{}, err
	}

	agent := claims.Agent()
	if agent.ID == "" {
		return types.Agent{}, ErrNoSubject
	}
	return agent, nil
}

// extractToken gets the token from Authorization header or query parameter
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString != authHeader {
			return tokenString
		}
	}

	// WebSocket clients cannot set headers from the browser
	return r.URL.Query().Get("token")
}

func (a *Authenticator) validateToken(tokenString string) (*Claims, error) {
	var (
		token *jwt.Token
		err   error
	)

	switch {
	case a.opts.JWTSecret != "":
		token, err = jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
			return []byte(a.opts.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(a.now))
		if err != nil {
			return nil, fmt.Errorf("token verification failed: %w", err)
		}

	case a.opts.VerifySignature:
		token, err = a.parseAndVerifyToken(tokenString)
		if err != nil {
			return nil, err
		}

	default:
		a.logger.Debug().Msg("JWT signature verification disabled (development mode)")
		token, _, err = jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
		if err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	claims := &Claims{}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := mapClaims["name"].(string); ok {
		claims.Name = name
	} else if preferredUsername, ok := mapClaims["preferred_username"].(string); ok {
		claims.Name = preferredUsername
	}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Subject = sub
	}

	// Verified tokens had exp checked by the parser
	if exp, ok := mapClaims["exp"].(float64); ok {
		expTime := time.Unix(int64(exp), 0)
		claims.ExpiresAt = jwt.NewNumericDate(expTime)
		if expTime.Before(a.now()) {
			return nil, ErrTokenExpired
		}
	}

	return claims, nil
}

// parseAndVerifyToken verifies the JWT signature against the issuer's JWKS
func (a *Authenticator) parseAndVerifyToken(tokenString string) (*jwt.Token, error) {
	kf, err := a.keyfunc()
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, kf, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return token, nil
}

func (a *Authenticator) keyfunc() (jwt.Keyfunc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.jwks != nil {
		return a.jwks.Keyfunc, nil
	}
	if a.opts.OIDCIssuer == "" {
		return nil, fmt.Errorf("OIDC_ISSUER not configured for JWT verification")
	}

	// Keycloak layout
	jwksURL := strings.TrimSuffix(a.opts.OIDCIssuer, "/") + "/protocol/openid-connect/certs"
	a.logger.Info().Str("url", jwksURL).Msg("fetching JWKS")

	k, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyfunc: %w", err)
	}
	a.jwks = k
	return k.Keyfunc, nil
}

// WithAgent stores the agent in ctx
func WithAgent(ctx context.Context, agent types.Agent) context.Context {
	return context.WithValue(ctx, agentContextKey, agent)
}

// AgentFromContext retrieves the agent stored by the middleware
func AgentFromContext(ctx context.Context) (types.Agent, bool) {
	agent, ok := ctx.Value(agentContextKey).(types.Agent)
	return agent, ok
}
