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

// GenreController mirrors CategoryController for genres.
type GenreController struct {
	db *gorm.DB
}

// NewGenreController creates a new GenreController instance.
func NewGenreController(db *gorm.DB) *GenreController {
	return &GenreController{db: db}
}

// ListGenres returns paginated genres, optionally filtered by a free-text
// search on name.
func (g *GenreController) ListGenres(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))

	query := g.db.Model(&models.Genre{})
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to count genres")
		return
	}

	var genres []models.Genre
	if err := query.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&genres).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list genres")
		return
	}

	items := make([]gin.H, 0, len(genres))
	for _, genre := range genres {
		items = append(items, genreResponse(genre))
	}
	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// CreateGenre adds a genre; admin only.
func (g *GenreController) CreateGenre(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionCreate, policy.Resource{Kind: policy.KindGenre}) {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
		Slug string `json:"slug" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "name and slug are required")
		return
	}
	slug := strings.TrimSpace(req.Slug)
	if !slugPattern.MatchString(slug) {
		utils.Error(ctx, http.StatusBadRequest, 40051, "slug may only contain letters, numbers, hyphens and underscores")
		return
	}

	genre := models.Genre{Name: strings.TrimSpace(req.Name), Slug: slug}
	if err := g.db.Create(&genre).Error; err != nil {
		if isDuplicateErr(err) {
			utils.Error(ctx, http.StatusConflict, 40950, "genre slug already in use")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to create genre")
		return
	}

	utils.Success(ctx, genreResponse(genre))
}

// DeleteGenre removes a genre by slug and detaches it from any titles.
func (g *GenreController) DeleteGenre(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionDelete, policy.Resource{Kind: policy.KindGenre}) {
		return
	}

	var genre models.Genre
	if err := g.db.Where("slug = ?", ctx.Param("slug")).First(&genre).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "genre not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to load genre")
		return
	}

	if err := g.db.Exec("DELETE FROM title_genres WHERE genre_id = ?", genre.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to detach genre")
		return
	}
	if err := g.db.Delete(&genre).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to delete genre")
		return
	}

	// Cached title reads embed the nested genre list.
	utils.InvalidateByPrefix("cache:title")
	utils.Success(ctx, gin.H{"message": "genre deleted"})
}
