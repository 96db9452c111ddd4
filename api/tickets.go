package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	service reservation.ReservationUseCase
	logger  *slog.Logger
}

type createTicketRequest struct {
	TripID        int64   `json:"trip_id" binding:"required"`
	PassengerName *string `json:"passenger_name"`
	PriceCents    *int64  `json:"price_cents" binding:"omitempty,gte=0"`
}

type ticketResponse struct {
	ID            int64   `json:"id"`
	Ref           string  `json:"ref"`
	TripID        int64   `json:"trip_id"`
	PassengerName *string `json:"passenger_name"`
	Status        string  `json:"status"`
	PriceCents    int64   `json:"price_cents"`
	CreatedAt     string  `json:"created_at"`
	PaidAt        *string `json:"paid_at"`
}

func NewTicketHandler(service reservation.ReservationUseCase, logger *slog.Logger) *TicketHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TicketHandler{service: service, logger: logger}
}

func (h *TicketHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:ref", h.get)
	router.POST("/:ref/pay", h.pay)
	router.POST("/:ref/cancel", h.cancel)
}

func (h *TicketHandler) create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	ticket, err := h.service.CreateTicket(c.Request.Context(), reservation.CreateTicketInput{
		TripID:        req.TripID,
		PassengerName: req.PassengerName,
		PriceCents:    req.PriceCents,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toTicketResponse(ticket))
}

func (h *TicketHandler) get(c *gin.Context) {
	ticket, err := h.service.GetTicket(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toTicketResponse(ticket))
}

func (h *TicketHandler) pay(c *gin.Context) {
	ticket, err := h.service.PayTicket(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toTicketResponse(ticket))
}

func (h *TicketHandler) cancel(c *gin.Context) {
	ticket, err := h.service.CancelTicket(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toTicketResponse(ticket))
}

func toTicketResponse(t *domain.Ticket) ticketResponse {
	resp := ticketResponse{
		ID:            t.ID,
		Ref:           t.Ref,
		TripID:        t.TripID,
		PassengerName: t.PassengerName,
		Status:        string(t.Status),
		PriceCents:    t.PriceCents,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.PaidAt != nil {
		paidAt := t.PaidAt.UTC().Format(time.RFC3339Nano)
		resp.PaidAt = &paidAt
	}
	return resp
}
