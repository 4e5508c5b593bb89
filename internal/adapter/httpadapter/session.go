package httpadapter

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
	"github.com/small-engineer/go-web-serv/account/internal/usecase/auth"
)

// requestSession is the auth.Session of one request. It has no id until
// the cookie carries a valid one or SetUserID mints one.
type requestSession struct {
	s  *Server
	c  *gin.Context
	id auth.SessionID
}

func (s *Server) currentSession(c *gin.Context) *requestSession {
	rs := &requestSession{s: s, c: c}
	v, err := c.Cookie(s.cookie)
	if err != nil {
		return rs
	}
	id, err := s.parseToken(v)
	if err != nil {
		s.log.DebugContext(c.Request.Context(), "ignoring session cookie", "err", err)
		return rs
	}
	rs.id = id
	return rs
}

func (rs *requestSession) UserID(ctx context.Context) (domain.UserID, bool, error) {
	if rs.id == "" {
		return 0, false, nil
	}
	return rs.s.sessions.FindUserID(ctx, rs.id)
}

func (rs *requestSession) SetUserID(ctx context.Context, uid domain.UserID) error {
	if rs.id == "" {
		rs.id = auth.SessionID(uuid.NewString())
	}
	if err := rs.s.sessions.Save(ctx, rs.id, uid); err != nil {
		return err
	}
	tok, err := rs.s.issueToken(rs.id)
	if err != nil {
		return err
	}
	rs.s.setCookie(rs.c.Writer, tok)
	return nil
}
