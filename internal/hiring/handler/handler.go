// Package handler exposes the hiring conversation over HTTP.
package handler

import (
	"net/http"
	"time"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/service"
	"hiring_assistant_backend/internal/hiring/transport"
	"hiring_assistant_backend/platform/config"
	"hiring_assistant_backend/platform/httpkit"
	"hiring_assistant_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for hiring sessions.
type Handler struct {
	svc    *service.Service
	val    *validator.Validator
	tokens config.TokenConfig
	now    func() time.Time
}

// New creates a new hiring handler.
func New(svc *service.Service, val *validator.Validator, tokens config.TokenConfig) *Handler {
	return &Handler{svc: svc, val: val, tokens: tokens, now: time.Now}
}

// RegisterRoutes registers the session routes. start carries extra
// middleware for session creation, such as a rate limiter.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, start ...gin.HandlerFunc) {
	rg.POST("", append(start, h.Start)...)

	session := rg.Group("/:id", httpkit.SessionTokenRequired(h.tokens))
	session.GET("", h.Get)
	session.POST("/messages", h.Send)
	session.POST("/end", h.End)
}

// Start opens a session and returns its token and the greeting.
func (h *Handler) Start(c *gin.Context) {
	var req transport.StartSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	sess, replies, err := h.svc.Start(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	token, expiresAt, err := httpkit.IssueSessionToken(h.tokens, sess.ID, h.now())
	if err != nil {
		_ = c.Error(err)
		httpkit.Error(c, http.StatusInternalServerError, "failed to issue session token", nil)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.StartSessionResponse{
		SessionID: sess.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		Stage:     string(sess.CurrentStage),
		Replies:   nonNil(replies),
	})
}

// Send runs one chat turn.
func (h *Handler) Send(c *gin.Context) {
	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.Send(c.Request.Context(), c.Param("id"), req.Message)
	if httpkit.HandleError(c, err) {
		return
	}
	resp.Replies = nonNil(resp.Replies)
	httpkit.OK(c, resp)
}

// End concludes the session.
func (h *Handler) End(c *gin.Context) {
	var req transport.EndSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	out, err := h.svc.End(c.Request.Context(), c.Param("id"), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.EndSessionResponse{
		FinalStatus:      out.Status,
		CandidateID:      out.CandidateID,
		AlreadyConcluded: out.AlreadyConcluded,
	})
}

// Get returns the read model of the session.
func (h *Handler) Get(c *gin.Context) {
	sess, err := h.svc.Snapshot(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSessionResponse(sess))
}

func toSessionResponse(s *domain.Session) transport.SessionResponse {
	resp := transport.SessionResponse{
		SessionID:   s.ID,
		Stage:       string(s.CurrentStage),
		CandidateID: s.CandidateID(),
		Concluded:   s.IsConcluded(),
		FinalStatus: s.FinalStatus,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.Qualification != nil {
		resp.QualificationState = string(s.Qualification.Status)
	}
	if s.Verification != nil {
		resp.EmailVerification = string(s.Verification.Email.Status)
		resp.PhoneVerification = string(s.Verification.Phone.Status)
	}
	if s.Report != nil {
		score := s.Report.FitScore
		resp.FitScore = &score
	}
	return resp
}

func nonNil(replies []string) []string {
	if replies == nil {
		return []string{}
	}
	return replies
}
