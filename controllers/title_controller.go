package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cvasq/critiq/models"
	"github.com/cvasq/critiq/policy"
	"github.com/cvasq/critiq/utils"
)

// TitleController manages the catalog of works. Reads are public and carry a
// computed rating; writes are admin-only and accept genre/category as slugs.
type TitleController struct {
	db *gorm.DB
}

// NewTitleController creates a new TitleController instance.
func NewTitleController(db *gorm.DB) *TitleController {
	return &TitleController{db: db}
}

// titleFilterQuery builds the filtered base query. Filters combine with AND;
// genre and category match as substrings of the slug, name matches as a
// case-insensitive substring.
func (t *TitleController) titleFilterQuery(name, genre, category string) *gorm.DB {
	query := t.db.Model(&models.Title{})
	if name != "" {
		query = query.Where("titles.name LIKE ?", "%"+name+"%")
	}
	if genre != "" {
		query = query.
			Joins("JOIN title_genres ON title_genres.title_id = titles.id").
			Joins("JOIN genres ON genres.id = title_genres.genre_id").
			Where("genres.slug LIKE ?", "%"+genre+"%")
	}
	if category != "" {
		query = query.
			Joins("JOIN categories ON categories.id = titles.category_id").
			Where("categories.slug LIKE ?", "%"+category+"%")
	}
	return query
}

// ratings returns the mean review score per title for the given ids. Titles
// without reviews are absent from the map.
func (t *TitleController) ratings(ids []uint) (map[uint]float64, error) {
	out := map[uint]float64{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		TitleID uint
		Rating  float64
	}
	err := t.db.Model(&models.Review{}).
		Select("title_id, AVG(score) AS rating").
		Where("title_id IN ?", ids).
		Group("title_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.TitleID] = row.Rating
	}
	return out, nil
}

// ListTitles returns paginated titles with their ratings, filterable by
// name, genre and category.
func (t *TitleController) ListTitles(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	name := strings.TrimSpace(ctx.Query("name"))
	genre := strings.TrimSpace(ctx.Query("genre"))
	category := strings.TrimSpace(ctx.Query("category"))

	// Cache only unfiltered pages to avoid cache key explosion.
	filtered := name != "" || genre != "" || category != ""
	cacheKey := fmt.Sprintf("cache:titles:list:page=%d:size=%d", page, pageSize)
	if !filtered {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	var total int64
	if err := t.titleFilterQuery(name, genre, category).Distinct("titles.id").Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to count titles")
		return
	}

	var titles []models.Title
	err := t.titleFilterQuery(name, genre, category).
		Distinct("titles.*").
		Preload("Genres").
		Preload("Category").
		Order("titles.id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&titles).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list titles")
		return
	}

	ids := make([]uint, 0, len(titles))
	for _, title := range titles {
		ids = append(ids, title.ID)
	}
	ratings, err := t.ratings(ids)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to aggregate ratings")
		return
	}

	items := make([]gin.H, 0, len(titles))
	for _, title := range titles {
		items = append(items, titleResponse(title, ratingOrNil(ratings, title.ID)))
	}

	payload := gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	}
	if !filtered {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetTitle returns a single title with its rating.
func (t *TitleController) GetTitle(ctx *gin.Context) {
	titleID := ctx.Param("title_id")

	if b, ok := utils.CacheGetBytes("cache:title:detail:" + titleID); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var title models.Title
	if err := t.db.Preload("Genres").Preload("Category").First(&title, "titles.id = ?", titleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "title not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load title")
		return
	}

	ratings, err := t.ratings([]uint{title.ID})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to aggregate ratings")
		return
	}

	payload := titleResponse(title, ratingOrNil(ratings, title.ID))
	utils.CacheSetJSON("cache:title:detail:"+titleID, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// CreateTitle adds a title to the catalog; admin only. Genre and category
// arrive as slugs and must already exist.
func (t *TitleController) CreateTitle(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionCreate, policy.Resource{Kind: policy.KindTitle}) {
		return
	}

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Year        *int     `json:"year" binding:"required"`
		Description string   `json:"description"`
		Genre       []string `json:"genre"`
		Category    string   `json:"category"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "name and year are required")
		return
	}
	if !validYear(ctx, *req.Year) {
		return
	}

	genres, ok := t.resolveGenres(ctx, req.Genre)
	if !ok {
		return
	}
	categoryID, categoryObj, ok := t.resolveCategory(ctx, req.Category)
	if !ok {
		return
	}

	title := models.Title{
		Name:        strings.TrimSpace(req.Name),
		Year:        *req.Year,
		Description: utils.Sanitize(req.Description),
		CategoryID:  categoryID,
	}
	if err := t.db.Omit("Genres").Create(&title).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to create title")
		return
	}
	if len(genres) > 0 {
		if err := t.db.Model(&title).Association("Genres").Append(genres); err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to attach genres")
			return
		}
	}
	title.Genres = genres
	title.Category = categoryObj

	invalidateTitleReadCaches(title.ID)
	utils.Success(ctx, titleResponse(title, nil))
}

// UpdateTitle partially updates a title; admin only.
func (t *TitleController) UpdateTitle(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionUpdate, policy.Resource{Kind: policy.KindTitle}) {
		return
	}

	var title models.Title
	if err := t.db.Preload("Genres").Preload("Category").First(&title, "titles.id = ?", ctx.Param("title_id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "title not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load title")
		return
	}

	var req struct {
		Name        *string   `json:"name"`
		Year        *int      `json:"year"`
		Description *string   `json:"description"`
		Genre       *[]string `json:"genre"`
		Category    *string   `json:"category"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			utils.Error(ctx, http.StatusBadRequest, 40022, "name cannot be empty")
			return
		}
		title.Name = name
	}
	if req.Year != nil {
		if !validYear(ctx, *req.Year) {
			return
		}
		title.Year = *req.Year
	}
	if req.Description != nil {
		title.Description = utils.Sanitize(*req.Description)
	}
	if req.Category != nil {
		categoryID, categoryObj, ok := t.resolveCategory(ctx, *req.Category)
		if !ok {
			return
		}
		title.CategoryID = categoryID
		title.Category = categoryObj
	}

	if err := t.db.Omit("Genres", "Category").Save(&title).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update title")
		return
	}

	if req.Genre != nil {
		genres, ok := t.resolveGenres(ctx, *req.Genre)
		if !ok {
			return
		}
		if err := t.db.Model(&title).Association("Genres").Replace(genres); err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to attach genres")
			return
		}
		title.Genres = genres
	}

	ratings, err := t.ratings([]uint{title.ID})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to aggregate ratings")
		return
	}

	invalidateTitleReadCaches(title.ID)
	utils.Success(ctx, titleResponse(title, ratingOrNil(ratings, title.ID)))
}

// DeleteTitle removes a title and, through the schema, its reviews and comments.
func (t *TitleController) DeleteTitle(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionDelete, policy.Resource{Kind: policy.KindTitle}) {
		return
	}

	var title models.Title
	if err := t.db.First(&title, "titles.id = ?", ctx.Param("title_id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "title not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load title")
		return
	}

	if err := t.db.Select("Genres").Delete(&title).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to delete title")
		return
	}

	invalidateTitleReadCaches(title.ID)
	utils.Success(ctx, gin.H{"message": "title deleted"})
}

// resolveGenres maps slugs to genre rows, rejecting unknown slugs.
func (t *TitleController) resolveGenres(ctx *gin.Context, slugs []string) ([]models.Genre, bool) {
	genres := make([]models.Genre, 0, len(slugs))
	seen := make([]uint, 0, len(slugs))
	for _, slug := range slugs {
		var genre models.Genre
		if err := t.db.Where("slug = ?", strings.TrimSpace(slug)).First(&genre).Error; err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40023, fmt.Sprintf("unknown genre slug: %s", slug))
			return nil, false
		}
		genres = append(genres, genre)
		seen = append(seen, genre.ID)
	}
	if len(utils.UniqueUint(seen)) != len(seen) {
		utils.Error(ctx, http.StatusBadRequest, 40024, "duplicate genre slug")
		return nil, false
	}
	return genres, true
}

// resolveCategory maps a slug to a category; an empty slug clears the field.
func (t *TitleController) resolveCategory(ctx *gin.Context, slug string) (*uint, *models.Category, bool) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil, true
	}
	var category models.Category
	if err := t.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40025, fmt.Sprintf("unknown category slug: %s", slug))
		return nil, nil, false
	}
	return &category.ID, &category, true
}

func validYear(ctx *gin.Context, year int) bool {
	current := time.Now().Year()
	if year > current {
		utils.Error(ctx, http.StatusBadRequest, 40026, fmt.Sprintf("%d is greater than the current year", year))
		return false
	}
	return true
}

func ratingOrNil(ratings map[uint]float64, titleID uint) *float64 {
	if v, ok := ratings[titleID]; ok {
		return &v
	}
	return nil
}
