package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
)

const (
	opMe       = "me"
	opRegister = "register"
	opLogin    = "login"
)

type queryRequest struct {
	Operation string          `json:"operation" validate:"required,oneof=me register login"`
	Variables json.RawMessage `json:"variables"`
}

type registerVars struct {
	Options domain.UsernamePasswordInput `json:"options"`
	ID      domain.UserID                `json:"id"`
}

type loginVars struct {
	Options domain.UsernamePasswordInput `json:"options"`
}

type respError struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Errors []respError `json:"errors"`
}

func respondError(c *gin.Context, code int, msgs ...string) {
	r := errorResponse{}
	for _, m := range msgs {
		r.Errors = append(r.Errors, respError{Message: m})
	}
	c.JSON(code, r)
}

func respondData(c *gin.Context, op string, v any) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{op: v}})
}

func (s *Server) validationMessages(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{"invalid request"}
	}
	var out []string
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			out = append(out, "operation is required")
		case "oneof":
			out = append(out, "unknown operation: "+fe.Value().(string))
		default:
			out = append(out, "invalid value for "+fe.Field())
		}
	}
	return out
}

// decodeVars treats a missing variables object as empty.
func decodeVars(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.v.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, s.validationMessages(err)...)
		return
	}

	ctx := c.Request.Context()
	sess := s.currentSession(c)

	var (
		out any
		err error
	)
	switch req.Operation {
	case opMe:
		u, e := s.auth.Me(ctx, sess)
		out, err = u, e
	case opRegister:
		var vars registerVars
		if e := decodeVars(req.Variables, &vars); e != nil {
			respondError(c, http.StatusBadRequest, "invalid variables")
			return
		}
		if s.reqID && vars.ID == 0 {
			respondData(c, opRegister, domain.Fail("id", "id is required"))
			return
		}
		out, err = s.auth.Register(ctx, vars.Options, vars.ID)
	case opLogin:
		var vars loginVars
		if e := decodeVars(req.Variables, &vars); e != nil {
			respondError(c, http.StatusBadRequest, "invalid variables")
			return
		}
		out, err = s.auth.Login(ctx, sess, vars.Options)
	}

	if err != nil {
		s.log.ErrorContext(ctx, "operation failed", "operation", req.Operation, "err", err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}
	respondData(c, req.Operation, out)
}
