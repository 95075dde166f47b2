package handler

import (
	"errors"
	"net/http"

	"creatorpay/internal/domain"
	"creatorpay/internal/middleware"
	"creatorpay/internal/repository"
	"creatorpay/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AdminHandler struct {
	dispatcher  *payment.Dispatcher
	paymentRepo *repository.PaymentRepository
}

func NewAdminHandler(dispatcher *payment.Dispatcher, paymentRepo *repository.PaymentRepository) *AdminHandler {
	return &AdminHandler{dispatcher: dispatcher, paymentRepo: paymentRepo}
}

// VerifyBankTransfer confirms a manually-received bank transfer against a
// pending payment. Only operators reach this route; the middleware has
// already checked the role.
func (h *AdminHandler) VerifyBankTransfer(c *gin.Context) {
	var req struct {
		OrderRef      string `json:"order_ref" binding:"required"`
		TransactionID string `json:"transaction_id" binding:"required"`
		Note          string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pay, err := h.paymentRepo.GetByOrderRef(req.OrderRef)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	if pay.Provider != domain.ProviderBankTransfer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a bank transfer payment"})
		return
	}

	p, err := h.dispatcher.Get(domain.ProviderBankTransfer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provider unavailable"})
		return
	}
	bank, ok := p.(*payment.BankTransferProvider)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provider unavailable"})
		return
	}

	if err := bank.VerifyBankTransfer(c.Request.Context(), req.OrderRef, req.TransactionID, req.Note); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{
		"order_ref": req.OrderRef,
		"admin_id":  middleware.GetUserID(c),
	}).Info("bank transfer verified by operator")

	updated, err := h.paymentRepo.GetByOrderRef(req.OrderRef)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment reload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": updated})
}

// PendingBankTransfers lists bank-transfer payments awaiting confirmation.
func (h *AdminHandler) PendingBankTransfers(c *gin.Context) {
	list, err := h.paymentRepo.ListPendingByProvider(domain.ProviderBankTransfer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}
