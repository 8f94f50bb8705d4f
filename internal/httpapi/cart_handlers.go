package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int32 `json:"quantity" binding:"required"`
}

type updateCartItemRequest struct {
	Quantity int32 `json:"quantity"`
}

func (h Handlers) getCart(c *gin.Context) {
	view, err := h.Cart.GetOrCreateActive(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartView(view))
}

func (h Handlers) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.Cart.AddItem(c.Request.Context(), currentUserID(c), req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartView(view))
}

func (h Handlers) updateCartItem(c *gin.Context) {
	itemID, ok := pathID(c)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.Cart.UpdateItemQuantity(c.Request.Context(), currentUserID(c), itemID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartView(view))
}

func (h Handlers) removeCartItem(c *gin.Context) {
	itemID, ok := pathID(c)
	if !ok {
		return
	}
	view, err := h.Cart.RemoveItem(c.Request.Context(), currentUserID(c), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartView(view))
}

func (h Handlers) clearCart(c *gin.Context) {
	view, err := h.Cart.Clear(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartView(view))
}
