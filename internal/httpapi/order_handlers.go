package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
	"github.com/vladislavdragonenkov/heladeria/internal/service/order"
)

type checkoutRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// checkout превращает активную корзину пользователя в заказ.
// Тело запроса необязательно: имя и email покупателя можно не передавать.
func (h Handlers) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	activeCart, lines, err := h.Cart.CheckoutSnapshot(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	orderID, err := h.Orders.CreateFromCart(c.Request.Context(), order.CheckoutInput{
		UserID:        userID,
		CartID:        activeCart.ID,
		Lines:         lines,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	created, err := h.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderView(created))
}

func (h Handlers) listMyOrders(c *gin.Context) {
	orders, err := h.Orders.ListByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderViews(orders))
}

// getMyOrder отдаёт заказ только его владельцу; чужой заказ неотличим
// от несуществующего.
func (h Handlers) getMyOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	found, err := h.Orders.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if found.UserID != currentUserID(c) {
		writeError(c, domain.ErrOrderNotFound)
		return
	}
	c.JSON(http.StatusOK, toOrderView(found))
}

func (h Handlers) listAllOrders(c *gin.Context) {
	orders, err := h.Orders.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderViews(orders))
}

func (h Handlers) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Orders.UpdateStatus(c.Request.Context(), id, domain.OrderStatus(req.Status)); err != nil {
		writeError(c, err)
		return
	}

	updated, err := h.Orders.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(updated))
}
