// Delivery HTTP handlers.
//
//   - POST /acks                        (device acknowledgement)
//   - GET  /hijacks/{key}/deliveries    (operator listing, paginated)
//
// Handlers validate input, call the delivery service and map its errors to
// status codes.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hijack-notifier/internal/domain"
	"github.com/tbourn/hijack-notifier/internal/services"
	"github.com/tbourn/hijack-notifier/internal/utils"
)

// DeliveryService is the application contract behind the handlers.
type DeliveryService interface {
	Acknowledge(ctx context.Context, hijackKey, runToken, userID string) error
	ListPage(ctx context.Context, hijackKey string, page, pageSize int) ([]domain.DeliveryTrackingEntry, int64, error)
	Summary(ctx context.Context, hijackKey string) (services.DeliverySummary, error)
}

// Handlers groups the API endpoints.
type Handlers struct {
	deliveries DeliveryService
}

// New returns Handlers bound to the given service.
func New(deliveries DeliveryService) *Handlers {
	return &Handlers{deliveries: deliveries}
}

// AckRequest is the body of POST /acks. The push payload carries hjKey and
// hjRandom, which devices echo back as hijack_key and run_token.
type AckRequest struct {
	HijackKey string `json:"hijack_key" binding:"required"`
	RunToken  string `json:"run_token"  binding:"required"`
	UserID    string `json:"user_id"    binding:"required"`
}

// Pagination carries list metadata.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListDeliveriesResponse is the body of GET /hijacks/{key}/deliveries.
type ListDeliveriesResponse struct {
	Items      []domain.DeliveryTrackingEntry `json:"items"`
	Summary    services.DeliverySummary       `json:"summary"`
	Pagination Pagination                     `json:"pagination"`
}

func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = max(utils.AtoiDefault(c.Query("page"), 1), 1)
	pageSize = min(max(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1), maxPageSize)
	return page, pageSize
}

// Acknowledge godoc
// @ID          acknowledgeDelivery
// @Summary     Acknowledge a push notification
// @Description Records that a device received the push notification of a run, which exempts its user from the SMS escalation.
// @Tags        Deliveries
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.AckRequest  true  "Run and user being acknowledged"
//
// @Success     204  "Acknowledged"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No matching tracking entry"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /acks [post]
func (h *Handlers) Acknowledge(c *gin.Context) {
	var req AckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "hijack_key, run_token and user_id are required")
		return
	}

	err := h.deliveries.Acknowledge(c.Request.Context(), req.HijackKey, req.RunToken, req.UserID)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrInvalidAck):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrEntryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no matching tracking entry")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeAckFailed, "could not record acknowledgement")
	}
}

// ListDeliveries godoc
// @ID          listDeliveries
// @Summary     List tracking entries of a hijack (paginated)
// @Description Returns the tracking entries of a hijack, newest first, together with a per-status summary.
// @Tags        Deliveries
// @Produce     json
//
// @Param       key        path   string  true   "Hijack key"
// @Param       page       query  int     false  "Page number (1-based)"  default(1)
// @Param       page_size  query  int     false  "Page size (max 100)"    default(20)
//
// @Success     200  {object}  handlers.ListDeliveriesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /hijacks/{key}/deliveries [get]
func (h *Handlers) ListDeliveries(c *gin.Context) {
	key := c.Param("key")
	page, pageSize := clampPagination(c)
	ctx := c.Request.Context()

	items, total, err := h.deliveries.ListPage(ctx, key, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrEmptyHijackKey) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list deliveries")
		return
	}
	summary, err := h.deliveries.Summary(ctx, key)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not summarize deliveries")
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListDeliveriesResponse{
		Items:   items,
		Summary: summary,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
