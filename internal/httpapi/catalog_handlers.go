package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

type productRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	PriceMinor  int64  `json:"price_minor"`
	Stock       int32  `json:"stock"`
	CategoryID  int64  `json:"category_id"`
	Active      *bool  `json:"active"`
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

func (r categoryRequest) toDomain(id int64) domain.Category {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return domain.Category{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Active:      active,
	}
}

func (h Handlers) listProducts(c *gin.Context) {
	filter := domain.ProductFilter{Search: c.Query("search")}
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		filter.CategoryID = id
	}

	products, err := h.Catalog.Products(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]productView, 0, len(products))
	for _, product := range products {
		views = append(views, toProductView(product))
	}
	c.JSON(http.StatusOK, views)
}

func (h Handlers) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	product, err := h.Catalog.Product(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductView(product))
}

func (h Handlers) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	id, err := h.Catalog.CreateProduct(c.Request.Context(), domain.Product{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		PriceMinor:  req.PriceMinor,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Active:      active,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h Handlers) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	err := h.Catalog.UpdateProduct(c.Request.Context(), domain.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		PriceMinor:  req.PriceMinor,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Active:      active,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) listCategories(c *gin.Context) {
	categories, err := h.Catalog.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]categoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, categoryView{
			ID:          category.ID,
			Name:        category.Name,
			Description: category.Description,
			Active:      category.Active,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (h Handlers) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.Catalog.CreateCategory(c.Request.Context(), req.toDomain(0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h Handlers) updateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Catalog.UpdateCategory(c.Request.Context(), req.toDomain(id)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pathID разбирает числовой :id из пути; при ошибке сам пишет 400.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id in path"})
		return 0, false
	}
	return id, true
}
