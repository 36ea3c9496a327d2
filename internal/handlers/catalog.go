package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"zenda-system/internal/database/models"
)

const (
	CATALOG_CACHE_PREFIX     = "catalog:"
	CATALOG_PRODUCT_LIST_KEY = "catalog:products"
	CATALOG_CATEGORY_KEY     = "catalog:categories"
)

type CatalogHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client) *CatalogHandler {
	return &CatalogHandler{
		db:    db,
		redis: redisClient,
	}
}

func (h *CatalogHandler) invalidateCatalogCaches(ctx context.Context, productIDs ...int64) {
	if h.redis == nil {
		return
	}
	_ = h.redis.Del(ctx, CATALOG_PRODUCT_LIST_KEY, CATALOG_CATEGORY_KEY)

	for _, id := range productIDs {
		cacheKey := fmt.Sprintf("%s%d", CATALOG_CACHE_PREFIX, id)
		_ = h.redis.Del(ctx, cacheKey)
	}
}

// Request structs
type CreateProductRequest struct {
	SKU        string          `json:"sku" binding:"required"`
	Barcode    *string         `json:"barcode,omitempty"`
	Name       string          `json:"name" binding:"required"`
	Price      decimal.Decimal `json:"price" binding:"required"`
	Cost       decimal.Decimal `json:"cost"`
	Stock      int32           `json:"stock"`
	MinStock   int32           `json:"min_stock"`
	CategoryID *int64          `json:"category_id,omitempty"`
}

type UpdateProductRequest struct {
	Barcode    *string          `json:"barcode,omitempty"`
	Name       *string          `json:"name,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Cost       *decimal.Decimal `json:"cost,omitempty"`
	Stock      *int32           `json:"stock,omitempty"`
	MinStock   *int32           `json:"min_stock,omitempty"`
	CategoryID *int64           `json:"category_id,omitempty"`
	IsActive   *bool            `json:"is_active,omitempty"`
}

type ListProductsQuery struct {
	Page       int     `form:"page,default=1"`
	PageSize   int     `form:"page_size,default=10"`
	IsActive   *bool   `form:"is_active,omitempty"`
	CategoryID *int64  `form:"category_id,omitempty"`
	SearchTerm *string `form:"search,omitempty"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateCustomerRequest struct {
	Name        string           `json:"name" binding:"required"`
	Email       *string          `json:"email,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	CreditLimit *decimal.Decimal `json:"credit_limit,omitempty"`
}

type UpdateCustomerRequest struct {
	Name        *string          `json:"name,omitempty"`
	Email       *string          `json:"email,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	CreditLimit *decimal.Decimal `json:"credit_limit,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

// --- Product Handlers ---

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if req.Price.IsNegative() || req.Cost.IsNegative() {
		c.JSON(http.StatusBadRequest, errorResponse("Price and cost must not be negative"))
		return
	}
	if req.Stock < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Stock must not be negative"))
		return
	}

	product := models.Product{
		SKU:        req.SKU,
		Barcode:    req.Barcode,
		Name:       req.Name,
		Price:      req.Price.Round(2),
		Cost:       req.Cost.Round(2),
		Stock:      req.Stock,
		MinStock:   req.MinStock,
		CategoryID: req.CategoryID,
		IsActive:   true,
	}

	if err := h.db.Create(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, errorResponse("SKU already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to create product: "+err.Error()))
		return
	}

	h.invalidateCatalogCaches(c.Request.Context(), product.ID)
	c.JSON(http.StatusCreated, successResponse("Product created successfully", product))
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	var product models.Product
	if err := h.db.Preload("Category").First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *CatalogHandler) GetProductByBarcode(c *gin.Context) {
	barcode := c.Param("barcode")
	if barcode == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Barcode required"))
		return
	}

	var product models.Product
	if err := h.db.Where("barcode = ? AND is_active = ?", barcode, true).
		Preload("Category").
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	q := h.db.Model(&models.Product{}).Preload("Category")

	if query.IsActive != nil {
		q = q.Where("is_active = ?", *query.IsActive)
	}
	if query.CategoryID != nil {
		q = q.Where("category_id = ?", *query.CategoryID)
	}
	if query.SearchTerm != nil && *query.SearchTerm != "" {
		searchTerm := "%" + *query.SearchTerm + "%"
		q = q.Where("sku LIKE ? OR name LIKE ? OR barcode LIKE ?", searchTerm, searchTerm, searchTerm)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	var products []models.Product
	if err := q.Offset((page - 1) * pageSize).Limit(pageSize).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Products retrieved successfully", products, PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}))
}

func (h *CatalogHandler) ListLowStockProducts(c *gin.Context) {
	var products []models.Product
	if err := h.db.Where("is_active = ? AND stock <= min_stock", true).
		Order("stock asc").
		Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Low stock products retrieved successfully", products))
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var product models.Product
	if err := h.db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	if req.Barcode != nil {
		product.Barcode = req.Barcode
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			c.JSON(http.StatusBadRequest, errorResponse("Price must not be negative"))
			return
		}
		product.Price = req.Price.Round(2)
	}
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			c.JSON(http.StatusBadRequest, errorResponse("Cost must not be negative"))
			return
		}
		product.Cost = req.Cost.Round(2)
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			c.JSON(http.StatusBadRequest, errorResponse("Stock must not be negative"))
			return
		}
		product.Stock = *req.Stock
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}
	if req.CategoryID != nil {
		product.CategoryID = req.CategoryID
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.UpdatedAt = time.Now()

	if err := h.db.Save(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to update product: "+err.Error()))
		return
	}

	h.invalidateCatalogCaches(c.Request.Context(), product.ID)
	c.JSON(http.StatusOK, successResponse("Product updated successfully", product))
}

// DeleteProduct deactivates; products referenced by past sales are never
// hard-deleted.
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	res := h.db.Model(&models.Product{}).Where("id = ?", productID).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to deactivate product"))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Product not found"))
		return
	}

	h.invalidateCatalogCaches(c.Request.Context(), productID)
	c.JSON(http.StatusOK, successResponse("Product deactivated successfully", nil))
}

// --- Category Handlers ---

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	category := models.Category{Name: req.Name, IsActive: true}
	if err := h.db.Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, errorResponse("Category already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to create category: "+err.Error()))
		return
	}

	h.invalidateCatalogCaches(c.Request.Context())
	c.JSON(http.StatusCreated, successResponse("Category created successfully", category))
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	q := h.db.Model(&models.Category{})

	if isActiveStr := c.Query("is_active"); isActiveStr != "" {
		if active, err := strconv.ParseBool(isActiveStr); err == nil {
			q = q.Where("is_active = ?", active)
		}
	}

	var categories []models.Category
	if err := q.Order("name asc").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	categoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	res := h.db.Model(&models.Category{}).Where("id = ?", categoryID).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to deactivate category"))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Category not found"))
		return
	}

	h.invalidateCatalogCaches(c.Request.Context())
	c.JSON(http.StatusOK, successResponse("Category deactivated successfully", nil))
}

// --- Customer Handlers ---

func (h *CatalogHandler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	customer := models.Customer{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: true,
	}
	if req.CreditLimit != nil {
		if req.CreditLimit.IsNegative() {
			c.JSON(http.StatusBadRequest, errorResponse("Credit limit must not be negative"))
			return
		}
		customer.CreditLimit = req.CreditLimit.Round(2)
	}

	if err := h.db.Create(&customer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to create customer: "+err.Error()))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Customer created successfully", customer))
}

func (h *CatalogHandler) GetCustomer(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid customer ID"))
		return
	}

	var customer models.Customer
	if err := h.db.First(&customer, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Customer not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Customer retrieved successfully", customer))
}

func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	q := h.db.Model(&models.Customer{})

	if search := c.Query("search"); search != "" {
		searchTerm := "%" + search + "%"
		q = q.Where("name LIKE ? OR email LIKE ? OR phone LIKE ?", searchTerm, searchTerm, searchTerm)
	}
	if isActiveStr := c.Query("is_active"); isActiveStr != "" {
		if active, err := strconv.ParseBool(isActiveStr); err == nil {
			q = q.Where("is_active = ?", active)
		}
	}

	var customers []models.Customer
	if err := q.Order("name asc").Find(&customers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Customers retrieved successfully", customers))
}

func (h *CatalogHandler) UpdateCustomer(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid customer ID"))
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var customer models.Customer
	if err := h.db.First(&customer, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Customer not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = req.Email
	}
	if req.Phone != nil {
		customer.Phone = req.Phone
	}
	if req.CreditLimit != nil {
		if req.CreditLimit.IsNegative() {
			c.JSON(http.StatusBadRequest, errorResponse("Credit limit must not be negative"))
			return
		}
		customer.CreditLimit = req.CreditLimit.Round(2)
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}
	customer.UpdatedAt = time.Now()

	if err := h.db.Save(&customer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to update customer: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Customer updated successfully", customer))
}
