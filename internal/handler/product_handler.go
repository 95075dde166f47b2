package handler

import (
	"net/http"
	"strconv"

	"creatorpay/internal/middleware"
	"creatorpay/internal/repository"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	productRepo  *repository.ProductRepository
	purchaseRepo *repository.PurchaseRepository
}

func NewProductHandler(productRepo *repository.ProductRepository, purchaseRepo *repository.PurchaseRepository) *ProductHandler {
	return &ProductHandler{productRepo: productRepo, purchaseRepo: purchaseRepo}
}

// ListByCreator returns a creator's active products.
func (h *ProductHandler) ListByCreator(c *gin.Context) {
	creatorID64, _ := strconv.ParseUint(c.Param("creator_id"), 10, 64)
	if creatorID64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator_id"})
		return
	}
	list, err := h.productRepo.ListByCreator(uint(creatorID64))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

// MyPurchases lists everything the caller has bought.
func (h *ProductHandler) MyPurchases(c *gin.Context) {
	userID := middleware.GetUserID(c)
	list, err := h.purchaseRepo.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": list})
}

// Download hands out a product's content URL, gated on a completed
// purchase.
func (h *ProductHandler) Download(c *gin.Context) {
	userID := middleware.GetUserID(c)
	productID64, _ := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if productID64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product_id"})
		return
	}
	product, err := h.productRepo.GetByID(uint(productID64))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if product.CreatorID != userID {
		if _, err := h.purchaseRepo.GetByUserAndProduct(userID, product.ID); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "purchase required"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"url": product.DownloadURL})
}
