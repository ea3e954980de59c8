package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cvasq/critiq/models"
	"github.com/cvasq/critiq/policy"
	"github.com/cvasq/critiq/utils"
)

// CategoryController manages categories: public list with name search,
// admin-only create and delete-by-slug. No update, no retrieve-by-id.
type CategoryController struct {
	db *gorm.DB
}

// NewCategoryController creates a new CategoryController instance.
func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{db: db}
}

// ListCategories returns paginated categories, optionally filtered by a
// free-text search on name.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))

	query := c.db.Model(&models.Category{})
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to count categories")
		return
	}

	var categories []models.Category
	if err := query.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list categories")
		return
	}

	items := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		items = append(items, categoryResponse(category))
	}
	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// CreateCategory adds a category; admin only.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionCreate, policy.Resource{Kind: policy.KindCategory}) {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
		Slug string `json:"slug" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "name and slug are required")
		return
	}
	slug := strings.TrimSpace(req.Slug)
	if !slugPattern.MatchString(slug) {
		utils.Error(ctx, http.StatusBadRequest, 40041, "slug may only contain letters, numbers, hyphens and underscores")
		return
	}

	category := models.Category{Name: strings.TrimSpace(req.Name), Slug: slug}
	if err := c.db.Create(&category).Error; err != nil {
		if isDuplicateErr(err) {
			utils.Error(ctx, http.StatusConflict, 40940, "category slug already in use")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to create category")
		return
	}

	utils.Success(ctx, categoryResponse(category))
}

// DeleteCategory removes a category by slug. Titles referencing it stay in
// the catalog with a null category.
func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionDelete, policy.Resource{Kind: policy.KindCategory}) {
		return
	}

	var category models.Category
	if err := c.db.Where("slug = ?", ctx.Param("slug")).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "category not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load category")
		return
	}

	if err := c.db.Delete(&category).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete category")
		return
	}

	// Cached title reads embed the nested category.
	utils.InvalidateByPrefix("cache:title")
	utils.Success(ctx, gin.H{"message": "category deleted"})
}
