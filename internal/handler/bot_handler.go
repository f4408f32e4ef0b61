package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gradticket-bot/internal/model"
	"gradticket-bot/internal/repository"
	"gradticket-bot/internal/service"
	"gradticket-bot/pkg/apperrors"
	"gradticket-bot/pkg/logger"
)

// MessagePublisher injects a message into the inbox so operators can feed
// test commands through the same path real messages take.
type MessagePublisher interface {
	Publish(ctx context.Context, author, body string) (string, error)
}

// BotHandler is the operator/status API. It exposes read views of the
// calendar, the record table and the rendered listing; it is not the user
// command path.
type BotHandler struct {
	service   service.BotService
	store     repository.RecordRepository
	publisher MessagePublisher
}

func NewBotHandler(service service.BotService, store repository.RecordRepository, publisher MessagePublisher) *BotHandler {
	return &BotHandler{service: service, store: store, publisher: publisher}
}

func (h *BotHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router := r.Group("/api/v1")
	{
		router.GET("ceremonies", h.ListCeremonies)
		router.GET("records", h.ListRecords)
		router.GET("listing", h.Listing)
		router.POST("messages", h.PublishMessage)
	}
}

func (h *BotHandler) ListCeremonies(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Calendar().Entries())
}

func (h *BotHandler) ListRecords(c *gin.Context) {
	var records []*model.TicketRecord
	var err error

	if date := c.Query("date"); date != "" {
		var buyers, sellers []*model.TicketRecord
		buyers, err = h.store.ScanByDateAndOperation(c, date, model.OperationBuy, false)
		if err == nil {
			sellers, err = h.store.ScanByDateAndOperation(c, date, model.OperationSell, false)
			records = append(buyers, sellers...)
		}
	} else {
		records, err = h.store.ListAll(c)
	}

	if err != nil {
		h.handleError(c, err, "ListRecords")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *BotHandler) Listing(c *gin.Context) {
	body, err := h.service.Listing(c)
	if err != nil {
		h.handleError(c, err, "Listing")
		return
	}

	title, err := h.service.MegathreadTitle()
	if err != nil && err != apperrors.ErrCalendarEmpty {
		h.handleError(c, err, "Listing")
		return
	}

	c.JSON(http.StatusOK, gin.H{"title": title, "body": body})
}

// PublishMessageRequest 注入收件匣的測試訊息
type PublishMessageRequest struct {
	Author string `json:"author" binding:"required"`
	Body   string `json:"body" binding:"required"`
}

func (h *BotHandler) PublishMessage(c *gin.Context) {
	var req PublishMessageRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	id, err := h.publisher.Publish(c, req.Author, req.Body)
	if err != nil {
		h.handleError(c, err, "PublishMessage")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

func (h *BotHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case err == apperrors.ErrRecordNotFound:
		log.Warn("Record not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case err == apperrors.ErrInvalidInput:
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
