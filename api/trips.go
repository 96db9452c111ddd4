package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/trips"
	"github.com/gin-gonic/gin"
)

type TripHandler struct {
	service trips.TripUseCase
	logger  *slog.Logger
}

type createTripRequest struct {
	Origin      string `json:"origin" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	DepartAt    string `json:"depart_at" binding:"required"`
	Capacity    int    `json:"capacity" binding:"required,gt=0,lte=2147483647"`
}

type tripResponse struct {
	ID             int64  `json:"id"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartAt       string `json:"depart_at"`
	Capacity       int    `json:"capacity"`
	SeatsAvailable int    `json:"seats_available"`
}

func NewTripHandler(service trips.TripUseCase, logger *slog.Logger) *TripHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TripHandler{service: service, logger: logger}
}

func (h *TripHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("", h.create)
	router.POST("/create", h.create)
}

func (h *TripHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp := make([]tripResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toTripResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TripHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	trip, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toTripResponse(trip))
}

func (h *TripHandler) create(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	departAt, err := time.Parse(time.RFC3339, req.DepartAt)
	if err != nil {
		writeError(c, h.logger, domain.Invalid("depart_at", "must be an RFC 3339 timestamp"))
		return
	}

	trip, err := h.service.Create(c.Request.Context(), trips.CreateTripInput{
		Origin:      req.Origin,
		Destination: req.Destination,
		DepartAt:    departAt,
		Capacity:    req.Capacity,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toTripResponse(trip))
}

func toTripResponse(t *domain.Trip) tripResponse {
	return tripResponse{
		ID:             t.ID,
		Origin:         t.Origin,
		Destination:    t.Destination,
		DepartAt:       t.DepartAt.UTC().Format(time.RFC3339),
		Capacity:       t.Capacity,
		SeatsAvailable: t.SeatsAvailable,
	}
}
