package httpadapter

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/small-engineer/go-web-serv/account/internal/logging"
	"github.com/small-engineer/go-web-serv/account/internal/usecase/auth"
)

type Options struct {
	Secret          []byte
	CookieName      string
	SessionTTL      time.Duration
	SecureCookie    bool
	RequireCallerID bool
	Logger          *slog.Logger
}

type Server struct {
	auth     *auth.Service
	sessions auth.SessionRepo
	key      []byte
	cookie   string
	ttl      time.Duration
	secure   bool
	reqID    bool
	log      *slog.Logger
	v        *validator.Validate
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func NewServer(a *auth.Service, sr auth.SessionRepo, o Options) (*Server, error) {
	if len(o.Secret) == 0 {
		return nil, errors.New("session secret is not set")
	}
	if o.CookieName == "" {
		o.CookieName = "qid"
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 24 * time.Hour
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Server{
		auth:     a,
		sessions: sr,
		key:      o.Secret,
		cookie:   o.CookieName,
		ttl:      o.SessionTTL,
		secure:   o.SecureCookie,
		reqID:    o.RequireCallerID,
		log:      o.Logger,
		v:        validator.New(),
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(s.log))

	r.POST("/graphql", s.handleQuery)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func (s *Server) issueToken(id auth.SessionID) (string, error) {
	now := time.Now()
	cl := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	v, err := tok.SignedString(s.key)
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *Server) parseToken(tok string) (auth.SessionID, error) {
	p, err := jwt.ParseWithClaims(tok, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		return s.key, nil
	})
	if err != nil {
		return "", err
	}
	cl, ok := p.Claims.(*sessionClaims)
	if !ok || !p.Valid || cl.Subject == "" {
		return "", errors.New("invalid token")
	}
	return auth.SessionID(cl.Subject), nil
}

func (s *Server) setCookie(w http.ResponseWriter, tok string) {
	c := &http.Cookie{
		Name:     s.cookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, c)
}
