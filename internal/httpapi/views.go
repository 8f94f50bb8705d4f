package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
	"github.com/vladislavdragonenkov/heladeria/internal/service/cart"
)

type productView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	PriceMinor   int64  `json:"price_minor"`
	Stock        int32  `json:"stock"`
	CategoryID   int64  `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	Active       bool   `json:"active"`
}

type categoryView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

type cartItemView struct {
	ID             int64  `json:"id"`
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	ImageURL       string `json:"image_url,omitempty"`
	Quantity       int32  `json:"quantity"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

type cartView struct {
	ID     int64          `json:"id"`
	Status string         `json:"status"`
	Items  []cartItemView `json:"items"`
	Totals domain.Totals  `json:"totals"`
}

type orderLineView struct {
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	ImageURL       string `json:"image_url,omitempty"`
	Quantity       int32  `json:"quantity"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

type orderView struct {
	ID            int64           `json:"id"`
	Status        string          `json:"status"`
	TotalMinor    int64           `json:"total_minor"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []orderLineView `json:"lines"`
}

func toProductView(p domain.Product) productView {
	return productView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		PriceMinor:   p.PriceMinor,
		Stock:        p.Stock,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Active:       p.Active,
	}
}

func toCartView(view cart.CartView) cartView {
	items := make([]cartItemView, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, cartItemView{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ImageURL:       item.ImageURL,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.UnitPriceMinor,
			LineTotalMinor: item.UnitPriceMinor * int64(item.Quantity),
		})
	}
	return cartView{
		ID:     view.Cart.ID,
		Status: string(view.Cart.Status),
		Items:  items,
		Totals: view.Totals,
	}
}

func toOrderView(order domain.Order) orderView {
	lines := make([]orderLineView, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineView{
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			ImageURL:       line.ImageURL,
			Quantity:       line.Quantity,
			UnitPriceMinor: line.UnitPriceMinor,
			LineTotalMinor: line.UnitPriceMinor * int64(line.Quantity),
		})
	}
	return orderView{
		ID:            order.ID,
		Status:        string(order.Status),
		TotalMinor:    order.TotalMinor,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CreatedAt:     order.CreatedAt,
		Lines:         lines,
	}
}

func toOrderViews(orders []domain.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	return views
}

// writeError переводит доменные ошибки в HTTP-статусы:
// not found — 404, ошибки валидации — 400, остальное — 500.
func writeError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
