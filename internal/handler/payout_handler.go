package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"creatorpay/internal/domain"
	"creatorpay/internal/middleware"
	"creatorpay/internal/models"
	"creatorpay/internal/repository"
	"creatorpay/internal/service"

	"github.com/gin-gonic/gin"
)

type PayoutHandler struct {
	walletRepo *repository.WalletRepository
	payoutRepo *repository.PayoutRepository
	userRepo   *repository.UserRepository
	payoutSvc  *service.PayoutService
	fees       *service.FeeService
}

func NewPayoutHandler(
	walletRepo *repository.WalletRepository,
	payoutRepo *repository.PayoutRepository,
	userRepo *repository.UserRepository,
	payoutSvc *service.PayoutService,
	fees *service.FeeService,
) *PayoutHandler {
	return &PayoutHandler{
		walletRepo: walletRepo,
		payoutRepo: payoutRepo,
		userRepo:   userRepo,
		payoutSvc:  payoutSvc,
		fees:       fees,
	}
}

// Eligibility reports whether the creator's accrued balance clears the
// payout threshold for their currency.
func (h *PayoutHandler) Eligibility(c *gin.Context) {
	userID := middleware.GetUserID(c)
	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	wallet, err := h.walletRepo.GetOrCreate(userID, user.Currency)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wallet error"})
		return
	}
	eligibility, err := h.payoutSvc.CheckPayoutEligibility(wallet.BalanceMinor, wallet.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, eligibility)
}

// EarningsPreview computes the fee/commission breakdown for a hypothetical
// gross amount through a provider, using the creator's own tier.
func (h *PayoutHandler) EarningsPreview(c *gin.Context) {
	userID := middleware.GetUserID(c)
	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	amount, _ := strconv.ParseInt(c.Query("amount"), 10, 64)
	if amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount required"})
		return
	}
	provider := c.DefaultQuery("provider", domain.ProviderEsewa)
	tier := user.CommissionTier
	if tier == "" {
		tier = domain.TierStandard
	}
	breakdown, err := h.fees.Earnings(amount, provider, tier, user.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// Create requests a payout of a concrete amount. Both payout bounds are
// hard errors here; the balance is debited before the payout row is
// queued for transfer.
func (h *PayoutHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		AmountMinor int64 `json:"amount_minor" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.userRepo.GetByID(userID)
	if err != nil || !user.IsCreator() {
		c.JSON(http.StatusForbidden, gin.H{"error": "creator only"})
		return
	}
	if err := h.payoutSvc.ValidatePayoutAmount(req.AmountMinor, user.Currency); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.walletRepo.Debit(userID, req.AmountMinor); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient balance"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wallet error"})
		return
	}

	payout := &models.Payout{
		UserID:      userID,
		OrderID:     fmt.Sprintf("po-%s", uuid.New().String()),
		AmountMinor: req.AmountMinor,
		Currency:    user.Currency,
		Status:      domain.PayoutPending,
	}
	if err := h.payoutRepo.Create(payout); err != nil {
		// roll the debit back so the money is not stranded
		_ = h.walletRepo.Credit(userID, req.AmountMinor, user.Currency)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payout create failed"})
		return
	}
	_ = h.walletRepo.RecordTransaction(&models.WalletTransaction{
		UserID:      userID,
		AmountMinor: -req.AmountMinor,
		Type:        domain.WalletTxnPayout,
		Reference:   payout.OrderID,
	})

	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

func (h *PayoutHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	list, err := h.payoutRepo.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": list})
}
