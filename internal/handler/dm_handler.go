package handler

import (
	"errors"
	"net/http"
	"strconv"

	"creatorpay/internal/middleware"
	"creatorpay/internal/models"
	"creatorpay/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type messageStore interface {
	Create(m *models.Message) error
	ListConversation(senderID, creatorID uint, limit, offset int) ([]models.Message, error)
}

type DMHandler struct {
	dmSvc       *service.DMCreditService
	messageRepo messageStore
}

func NewDMHandler(dmSvc *service.DMCreditService, messageRepo messageStore) *DMHandler {
	return &DMHandler{dmSvc: dmSvc, messageRepo: messageRepo}
}

// SendMessage gates a DM on the sender's paid-message allowance. A sender
// without a usable credit gets 402 with everything needed to buy a bundle
// and retry the same send; that is an expected outcome, not an error.
func (h *DMHandler) SendMessage(c *gin.Context) {
	senderID := middleware.GetUserID(c)
	creatorID64, _ := strconv.ParseUint(c.Param("creator_id"), 10, 64)
	if creatorID64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator_id"})
		return
	}
	creatorID := uint(creatorID64)

	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := h.dmSvc.AuthorizeSend(senderID, creatorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "creator not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization failed"})
		return
	}
	if decision.Kind == service.DecisionPaymentRequired {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":   "payment required",
			"payment": decision,
		})
		return
	}

	msg := &models.Message{
		SenderID:  senderID,
		CreatorID: creatorID,
		Body:      req.Body,
	}
	if decision.Kind == service.DecisionCredit {
		creditID := decision.CreditID
		msg.DMPaymentID = &creditID
	}
	if err := h.messageRepo.Create(msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message create failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":            msg,
		"charged":            decision.Kind == service.DecisionCredit,
		"remaining_messages": decision.Remaining,
	})
}

// Credits reports the sender's unused allowance toward a creator.
func (h *DMHandler) Credits(c *gin.Context) {
	senderID := middleware.GetUserID(c)
	creatorID64, _ := strconv.ParseUint(c.Param("creator_id"), 10, 64)
	if creatorID64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator_id"})
		return
	}
	remaining, err := h.dmSvc.Remaining(senderID, uint(creatorID64))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credit lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"remaining_messages": remaining})
}

// Conversation returns paginated messages between the sender and a
// creator.
func (h *DMHandler) Conversation(c *gin.Context) {
	senderID := middleware.GetUserID(c)
	creatorID64, _ := strconv.ParseUint(c.Param("creator_id"), 10, 64)
	if creatorID64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator_id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.messageRepo.ListConversation(senderID, uint(creatorID64), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}
