package router

import (
	"creatorpay/config"
	"creatorpay/internal/domain"
	"creatorpay/internal/handler"
	"creatorpay/internal/middleware"
	"creatorpay/internal/repository"
	"creatorpay/internal/service"
	"creatorpay/pkg/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	productRepo := repository.NewProductRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	dmPaymentRepo := repository.NewDMPaymentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)

	// Services
	feeSvc := service.NewFeeService(cfg.Commission)
	payoutSvc := service.NewPayoutService(cfg.Payout)
	dmSvc := service.NewDMCreditService(dmPaymentRepo, userRepo)
	store := service.NewPaymentStore(paymentRepo, subRepo, purchaseRepo, dmPaymentRepo, walletRepo, userRepo, feeSvc)

	dispatcher := newDispatcher(cfg, store)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(cfg, dispatcher, paymentRepo, subRepo, productRepo, userRepo, store, feeSvc)
	webhookHandler := handler.NewWebhookHandler(dispatcher)
	dmHandler := handler.NewDMHandler(dmSvc, messageRepo)
	payoutHandler := handler.NewPayoutHandler(walletRepo, payoutRepo, userRepo, payoutSvc, feeSvc)
	adminHandler := handler.NewAdminHandler(dispatcher, paymentRepo)
	productHandler := handler.NewProductHandler(productRepo, purchaseRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		// Provider callbacks carry their own authentication.
		api.POST("/webhooks/:provider", webhookHandler.Handle)

		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.GET("/options", paymentHandler.Options)
			payments.POST("/checkout", paymentHandler.Checkout)
			payments.POST("/verify", paymentHandler.Verify)
		}

		creators := api.Group("/creators")
		creators.Use(authMw)
		{
			creators.GET("/:creator_id/products", productHandler.ListByCreator)
			creators.POST("/:creator_id/messages", dmHandler.SendMessage)
			creators.GET("/:creator_id/messages", dmHandler.Conversation)
			creators.GET("/:creator_id/credits", dmHandler.Credits)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/payments", paymentHandler.History)
			me.GET("/subscriptions", paymentHandler.Subscriptions)
			me.GET("/purchases", productHandler.MyPurchases)
			me.GET("/products/:product_id/download", productHandler.Download)
		}

		creatorOnly := api.Group("/me")
		creatorOnly.Use(authMw, middleware.RequireRole(domain.RoleCreator))
		{
			creatorOnly.GET("/payouts/eligibility", payoutHandler.Eligibility)
			creatorOnly.GET("/earnings/preview", payoutHandler.EarningsPreview)
			creatorOnly.POST("/payouts", payoutHandler.Create)
			creatorOnly.GET("/payouts", payoutHandler.List)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/bank-transfers", adminHandler.PendingBankTransfers)
			admin.POST("/bank-transfers/verify", adminHandler.VerifyBankTransfer)
		}
	}

	return r
}

// newDispatcher registers a lazy constructor per provider so a provider with
// missing credentials only fails when somebody selects it.
func newDispatcher(cfg *config.Config, store payment.Store) *payment.Dispatcher {
	d := payment.NewDispatcher()
	d.Register(domain.ProviderStripe, func() (payment.Provider, error) {
		return payment.NewStripeProvider(payment.StripeConfig{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			BaseURL:       cfg.Stripe.BaseURL,
		}, store), nil
	})
	d.Register(domain.ProviderRazorpay, func() (payment.Provider, error) {
		return payment.NewRazorpayProvider(payment.RazorpayConfig{
			KeyID:         cfg.Razorpay.KeyID,
			KeySecret:     cfg.Razorpay.KeySecret,
			WebhookSecret: cfg.Razorpay.WebhookSecret,
			BaseURL:       cfg.Razorpay.BaseURL,
		}, store), nil
	})
	d.Register(domain.ProviderEsewa, func() (payment.Provider, error) {
		return payment.NewEsewaProvider(payment.EsewaConfig{
			ProductCode: cfg.Esewa.ProductCode,
			SecretKey:   cfg.Esewa.SecretKey,
			BaseURL:     cfg.Esewa.BaseURL,
		}, store), nil
	})
	d.Register(domain.ProviderKhalti, func() (payment.Provider, error) {
		return payment.NewKhaltiProvider(payment.KhaltiConfig{
			SecretKey: cfg.Khalti.SecretKey,
			BaseURL:   cfg.Khalti.BaseURL,
		}, store), nil
	})
	d.Register(domain.ProviderBankTransfer, func() (payment.Provider, error) {
		return payment.NewBankTransferProvider(payment.BankTransferConfig{
			BankName:      cfg.Bank.BankName,
			Branch:        cfg.Bank.Branch,
			AccountName:   cfg.Bank.AccountName,
			AccountNumber: cfg.Bank.AccountNumber,
		}, store), nil
	})
	return d
}
