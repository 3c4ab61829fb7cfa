package registrations

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aura-events/registration-service/internal/middleware"
	"github.com/aura-events/registration-service/internal/models"
	"github.com/aura-events/registration-service/pkg/response"
)

// CreateRequest is the body for POST /registrations.
type CreateRequest struct {
	EventID int64  `json:"eventId" binding:"required,gt=0"`
	Name    string `json:"name" binding:"required,nonblank,min=3,max=64"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required,phone"`
}

// UpdateRequest is the body for PATCH /registrations. Omitted fields are left unchanged.
type UpdateRequest struct {
	ID       int64   `json:"id" binding:"required,gt=0"`
	Password string  `json:"password" binding:"required"`
	Name     *string `json:"name" binding:"omitempty,nonblank,min=3,max=64"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,phone"`
}

// AuthRequest is the body for DELETE /registrations.
type AuthRequest struct {
	ID       int64  `json:"id" binding:"required,gt=0"`
	Password string `json:"password" binding:"required"`
}

// StatusRequest is the body for PATCH /registrations/status.
type StatusRequest struct {
	ID     int64   `json:"id" binding:"required,gt=0"`
	Status string  `json:"status" binding:"required"`
	Reason *string `json:"reason"`
}

var phonePattern = regexp.MustCompile(`^\+\d+$`)

var validatorsOnce sync.Once

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	validatorsOnce.Do(func() {
		if err := registerValidators(); err != nil {
			logger.Warn("custom validators not registered", zap.Error(err))
		}
	})
	return &Handler{svc: svc, logger: logger}
}

// Mount registers the registration routes. authn guards the organizer routes,
// internal additionally guards routes meant for other services.
func (h *Handler) Mount(r gin.IRouter, authn gin.HandlerFunc, internal ...gin.HandlerFunc) {
	r.POST("/registrations", h.Create)
	r.PATCH("/registrations", h.Update)
	r.DELETE("/registrations", h.Withdraw)
	r.GET("/registrations", h.ListByEvent)
	r.GET("/registrations/:id", h.Get)

	r.PATCH("/registrations/status", authn, h.ChangeStatus)
	r.GET("/registrations/status/count", h.CountByStatus)
	r.GET("/registrations/status/:eventId", h.ListByStatuses)
	r.GET("/registrations/status/:eventId/total", h.CountByStatuses)

	chain := append([]gin.HandlerFunc{authn}, internal...)
	r.GET("/internal/registrations/status", append(chain, h.StatusOf)...)
}

// Create handles POST /registrations. Returns the id and the secret once.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	creds, err := h.svc.Create(c.Request.Context(), NewRegistration{
		EventID: req.EventID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
	})
	if err != nil {
		h.writeError(c, "create registration failed", err)
		return
	}
	response.Created(c, creds)
}

// Update handles PATCH /registrations.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	for _, f := range []*string{req.Name, req.Email, req.Phone} {
		if f != nil && strings.TrimSpace(*f) == "" {
			response.BadRequest(c, "invalid request: contact fields must be non-blank when present")
			return
		}
	}
	view, err := h.svc.UpdateContactData(c.Request.Context(), ContactUpdate{
		ID:     req.ID,
		Secret: req.Password,
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
	})
	if err != nil {
		h.writeError(c, "update registration failed", err)
		return
	}
	response.OK(c, view)
}

// Withdraw handles DELETE /registrations.
func (h *Handler) Withdraw(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.Withdraw(c.Request.Context(), models.Credentials{ID: req.ID, Secret: req.Password}); err != nil {
		h.writeError(c, "withdraw registration failed", err)
		return
	}
	response.NoContent(c)
}

// Get handles GET /registrations/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := positiveInt(c, c.Param("id"), "registration id")
	if !ok {
		return
	}
	view, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get registration failed", err)
		return
	}
	response.OK(c, view)
}

// ListByEvent handles GET /registrations?eventId=&page=&size=.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, ok := positiveInt(c, c.Query("eventId"), "eventId")
	if !ok {
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		response.BadRequest(c, "invalid page")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(DefaultPageSize)))
	if err != nil || size <= 0 {
		response.BadRequest(c, "invalid size")
		return
	}
	list, err := h.svc.ListByEvent(c.Request.Context(), eventID, Page{Page: page, Size: size})
	if err != nil {
		h.writeError(c, "list registrations failed", err)
		return
	}
	response.OK(c, list)
}

// ChangeStatus handles PATCH /registrations/status. The requester comes from the JWT.
func (h *Handler) ChangeStatus(c *gin.Context) {
	requesterID, ok := c.Get(middleware.ContextUserID)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	view, err := h.svc.ChangeStatus(c.Request.Context(), requesterID.(int64), StatusChange{
		ID:     req.ID,
		Status: req.Status,
		Reason: req.Reason,
	})
	if err != nil {
		h.writeError(c, "change registration status failed", err)
		return
	}
	response.OK(c, view)
}

// ListByStatuses handles GET /registrations/status/:eventId?status=...
func (h *Handler) ListByStatuses(c *gin.Context) {
	eventID, ok := positiveInt(c, c.Param("eventId"), "event id")
	if !ok {
		return
	}
	list, err := h.svc.ListByStatuses(c.Request.Context(), eventID, queryStatuses(c))
	if err != nil {
		h.writeError(c, "list registrations by status failed", err)
		return
	}
	response.OK(c, list)
}

// CountByStatus handles GET /registrations/status/count?eventId=.
func (h *Handler) CountByStatus(c *gin.Context) {
	eventID, ok := positiveInt(c, c.Query("eventId"), "eventId")
	if !ok {
		return
	}
	counts, err := h.svc.CountByStatus(c.Request.Context(), eventID)
	if err != nil {
		h.writeError(c, "count registrations failed", err)
		return
	}
	response.OK(c, counts)
}

// CountByStatuses handles GET /registrations/status/:eventId/total?status=...
func (h *Handler) CountByStatuses(c *gin.Context) {
	eventID, ok := positiveInt(c, c.Param("eventId"), "event id")
	if !ok {
		return
	}
	n, err := h.svc.CountByStatuses(c.Request.Context(), eventID, queryStatuses(c))
	if err != nil {
		h.writeError(c, "count registrations by status failed", err)
		return
	}
	response.OK(c, gin.H{"count": n})
}

// StatusOf handles GET /internal/registrations/status?eventId=&userId=.
func (h *Handler) StatusOf(c *gin.Context) {
	eventID, ok := positiveInt(c, c.Query("eventId"), "eventId")
	if !ok {
		return
	}
	userID, ok := positiveInt(c, c.Query("userId"), "userId")
	if !ok {
		return
	}
	status, err := h.svc.StatusOf(c.Request.Context(), eventID, userID)
	if err != nil {
		h.writeError(c, "get registration status failed", err)
		return
	}
	response.OK(c, gin.H{"status": status})
}

// writeError maps lifecycle errors to HTTP statuses. Untyped errors are logged.
func (h *Handler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrAuthentication):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrConflict):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, msg)
	}
}

func positiveInt(c *gin.Context, raw, name string) (int64, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

// queryStatuses accepts both ?status=A&status=B and ?status=A,B.
func queryStatuses(c *gin.Context) []string {
	var out []string
	for _, v := range c.QueryArray("status") {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}
