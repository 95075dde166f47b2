package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"creatorpay/config"
	"creatorpay/internal/domain"
	"creatorpay/internal/middleware"
	"creatorpay/internal/models"
	"creatorpay/internal/service"
	"creatorpay/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// The handler depends on the few repository methods it actually calls, so
// tests can stand in small fakes. The concrete repositories satisfy these.
type paymentLedger interface {
	Create(p *models.Payment) error
	GetByIdempotencyKey(userID uint, key string) (*models.Payment, error)
	ListByUser(userID uint, limit, offset int) ([]models.Payment, error)
}

type subscriptionLedger interface {
	Create(s *models.Subscription) error
	SetProviderRef(id uint, ref string) error
	ListByUser(userID uint) ([]models.Subscription, error)
}

type productCatalog interface {
	GetByID(id uint) (*models.Product, error)
}

type creatorDirectory interface {
	GetCreatorByID(id uint) (*models.User, error)
}

type PaymentHandler struct {
	cfg         *config.Config
	dispatcher  *payment.Dispatcher
	paymentRepo paymentLedger
	subRepo     subscriptionLedger
	productRepo productCatalog
	userRepo    creatorDirectory
	store       *service.PaymentStore
	fees        *service.FeeService
}

func NewPaymentHandler(
	cfg *config.Config,
	dispatcher *payment.Dispatcher,
	paymentRepo paymentLedger,
	subRepo subscriptionLedger,
	productRepo productCatalog,
	userRepo creatorDirectory,
	store *service.PaymentStore,
	fees *service.FeeService,
) *PaymentHandler {
	return &PaymentHandler{
		cfg:         cfg,
		dispatcher:  dispatcher,
		paymentRepo: paymentRepo,
		subRepo:     subRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		store:       store,
		fees:        fees,
	}
}

// Checkout creates a provider-side order for a subscription, product or DM
// bundle and records the PENDING payment. The client then completes the
// payment out-of-band (redirect, form POST or bank transfer) and comes
// back through Verify or the provider's webhook.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		Provider       string `json:"provider" binding:"required"`
		Purpose        string `json:"purpose" binding:"required,oneof=SUBSCRIPTION PRODUCT DM_BUNDLE"`
		CreatorID      uint   `json:"creator_id" binding:"required"`
		ProductID      uint   `json:"product_id"`
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IdempotencyKey != "" {
		// scoped to the caller: someone else's key must never surface their
		// payment here
		if existing, err := h.paymentRepo.GetByIdempotencyKey(userID, req.IdempotencyKey); err == nil {
			c.JSON(http.StatusOK, checkoutResponse(existing, nil))
			return
		}
	}

	creator, err := h.userRepo.GetCreatorByID(req.CreatorID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "creator not found"})
		return
	}

	amount, currency, meta, err := h.resolvePrice(req.Purpose, req.ProductID, creator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !domain.ProviderAllowedForCurrency(req.Provider, currency) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     fmt.Sprintf("provider %s not available for %s", req.Provider, currency),
			"providers": domain.ProvidersForCurrency(currency),
		})
		return
	}

	orderRef := "cp-" + uuid.New().String()
	result, err := h.dispatcher.CreateOrder(c.Request.Context(), payment.Config{
		Provider:  req.Provider,
		Amount:    amount,
		Currency:  currency,
		OrderRef:  orderRef,
		UserID:    userID,
		CreatorID: req.CreatorID,
		Purpose:   req.Purpose,
		ReturnURL: h.cfg.PublicBaseURL + "/payments/return",
		Metadata:  map[string]string{"order_ref": orderRef},
	})
	if err != nil {
		// unknown provider or missing credential: a configuration failure
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !result.Success {
		logrus.WithFields(logrus.Fields{"provider": req.Provider, "order_ref": orderRef}).
			Warnf("order creation rejected: %s", result.Error)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment failed", "detail": result.Error, "retryable": true})
		return
	}

	metaJSON, _ := json.Marshal(meta)
	providerRef := result.OrderID
	if providerRef == "" {
		providerRef = orderRef
	}
	idemKey := req.IdempotencyKey
	if idemKey == "" {
		idemKey = orderRef
	}
	pay := &models.Payment{
		UserID:         userID,
		CreatorID:      req.CreatorID,
		AmountMinor:    amount,
		Currency:       currency,
		Provider:       req.Provider,
		Purpose:        req.Purpose,
		OrderRef:       orderRef,
		ProviderRef:    providerRef,
		Status:         domain.PaymentPending,
		IdempotencyKey: idemKey,
		Metadata:       string(metaJSON),
	}
	if err := h.paymentRepo.Create(pay); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment create failed"})
		return
	}

	if req.Purpose == domain.PurposeSubscription {
		sub := &models.Subscription{
			UserID:    userID,
			CreatorID: req.CreatorID,
			PaymentID: &pay.ID,
			Status:    domain.SubscriptionPending,
		}
		if err := h.subRepo.Create(sub); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "subscription create failed"})
			return
		}
		// recurring-billing webhooks find the row by this reference
		if err := h.subRepo.SetProviderRef(sub.ID, providerRef); err != nil {
			logrus.WithField("order_ref", orderRef).WithError(err).Warn("subscription provider ref not recorded")
		}
	}

	c.JSON(http.StatusOK, checkoutResponse(pay, result))
}

func checkoutResponse(pay *models.Payment, result *payment.Result) gin.H {
	resp := gin.H{
		"order_ref":      pay.OrderRef,
		"provider_ref":   pay.ProviderRef,
		"provider":       pay.Provider,
		"purpose":        pay.Purpose,
		"amount":         pay.AmountMinor,
		"currency":       pay.Currency,
		"payment_status": pay.Status,
	}
	if result == nil {
		return resp
	}
	if result.RedirectURL != "" {
		resp["redirect_url"] = result.RedirectURL
	}
	if result.FormURL != "" {
		resp["form_url"] = result.FormURL
		resp["form_data"] = result.FormData
	}
	if len(result.Instructions) > 0 {
		resp["instructions"] = result.Instructions
	}
	return resp
}

func (h *PaymentHandler) resolvePrice(purpose string, productID uint, creator *models.User) (int64, string, service.PaymentMeta, error) {
	var meta service.PaymentMeta
	switch purpose {
	case domain.PurposeSubscription:
		if creator.SubscriptionPriceMinor <= 0 {
			return 0, "", meta, fmt.Errorf("creator has no subscription price")
		}
		return creator.SubscriptionPriceMinor, creator.Currency, meta, nil
	case domain.PurposeProduct:
		if productID == 0 {
			return 0, "", meta, fmt.Errorf("product_id required")
		}
		product, err := h.productRepo.GetByID(productID)
		if err != nil || product.CreatorID != creator.ID || !product.Active {
			return 0, "", meta, fmt.Errorf("product not found")
		}
		meta.ProductID = product.ID
		return product.PriceMinor, product.Currency, meta, nil
	case domain.PurposeDMBundle:
		if creator.DMPriceMinor <= 0 {
			return 0, "", meta, fmt.Errorf("creator does not charge for messages")
		}
		bundle := creator.DMBundleMessages
		if bundle <= 0 {
			bundle = 1
		}
		meta.BundleMessages = bundle
		meta.BundleExpiryDays = creator.DMBundleExpiryDays
		return creator.DMPriceMinor * int64(bundle), creator.Currency, meta, nil
	default:
		return 0, "", meta, fmt.Errorf("unknown purpose %q", purpose)
	}
}

// Verify checks a client-returned payment claim against the provider and
// applies the resulting transition. The claim itself is never trusted: the
// adapter recomputes signatures or re-fetches provider state.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req struct {
		Provider  string `json:"provider" binding:"required"`
		OrderID   string `json:"order_id" binding:"required"` // provider-side order/session id or pidx
		PaymentID string `json:"payment_id"`
		Signature string `json:"signature"`
		Data      string `json:"data"` // eSewa base64 callback token
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	signature := req.Signature
	if req.Data != "" {
		signature = req.Data
	}
	v, err := h.dispatcher.VerifyPayment(c.Request.Context(), req.Provider, req.OrderID, req.PaymentID, signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch v.Status {
	case payment.StatusCompleted:
		if _, err := h.store.CompletePayment(c.Request.Context(), v.OrderID, v.PaymentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment update failed"})
			return
		}
	case payment.StatusFailed:
		if _, err := h.store.FailPayment(c.Request.Context(), v.OrderID, "verification failed"); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment update failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    v.Success,
		"order_id":   v.OrderID,
		"payment_id": v.PaymentID,
		"amount":     v.Amount,
		"status":     v.Status,
	})
}

// History lists the caller's payments, newest first.
func (h *PaymentHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.paymentRepo.ListByUser(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}

// Subscriptions lists the caller's subscriptions with their current status.
func (h *PaymentHandler) Subscriptions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	list, err := h.subRepo.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": list})
}

// Options lists the providers available for a currency with a fee preview
// for an optional amount.
func (h *PaymentHandler) Options(c *gin.Context) {
	currency := c.DefaultQuery("currency", domain.CurrencyNPR)
	amount, err := strconv.ParseInt(c.DefaultQuery("amount", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	providers := domain.ProvidersForCurrency(currency)
	options := make([]gin.H, 0, len(providers))
	for _, p := range providers {
		opt := gin.H{"provider": p}
		if amount > 0 {
			if fee, pct, err := h.fees.PaymentFee(amount, p); err == nil {
				opt["fee"] = fee
				opt["fee_percentage"] = pct
			}
		}
		options = append(options, opt)
	}
	c.JSON(http.StatusOK, gin.H{"currency": currency, "options": options})
}
