package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cvasq/critiq/models"
	"github.com/cvasq/critiq/policy"
	"github.com/cvasq/critiq/utils"
)

// ReviewController manages reviews nested under a title. Parent lookups run
// before authentication and body validation so a missing title is always a
// 404, whatever else is wrong with the request.
type ReviewController struct {
	db *gorm.DB
}

// NewReviewController creates a new ReviewController instance.
func NewReviewController(db *gorm.DB) *ReviewController {
	return &ReviewController{db: db}
}

func (r *ReviewController) loadTitle(ctx *gin.Context) (*models.Title, bool) {
	var title models.Title
	if err := r.db.First(&title, "id = ?", ctx.Param("title_id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "title not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load title")
		return nil, false
	}
	return &title, true
}

func (r *ReviewController) loadReview(ctx *gin.Context, titleID uint) (*models.Review, bool) {
	var review models.Review
	err := r.db.Preload("Author").
		Where("id = ? AND title_id = ?", ctx.Param("review_id"), titleID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "review not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load review")
		return nil, false
	}
	return &review, true
}

// ListReviews returns a title's reviews, newest first.
func (r *ReviewController) ListReviews(ctx *gin.Context) {
	title, ok := r.loadTitle(ctx)
	if !ok {
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := r.db.Model(&models.Review{}).Where("title_id = ?", title.ID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to count reviews")
		return
	}

	var reviews []models.Review
	err := r.db.Preload("Author").
		Where("title_id = ?", title.ID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reviews).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to list reviews")
		return
	}

	items := make([]gin.H, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, reviewResponse(review))
	}
	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// GetReview returns a single review.
func (r *ReviewController) GetReview(ctx *gin.Context) {
	title, ok := r.loadTitle(ctx)
	if !ok {
		return
	}
	review, ok := r.loadReview(ctx, title.ID)
	if !ok {
		return
	}
	utils.Success(ctx, reviewResponse(*review))
}

// CreateReview adds the caller's review of a title. One review per author
// and title: a repeat attempt is a conflict, checked up front and backed by
// the composite unique index for concurrent creates.
func (r *ReviewController) CreateReview(ctx *gin.Context) {
	title, ok := r.loadTitle(ctx)
	if !ok {
		return
	}
	caller, ok := requireAuth(ctx)
	if !ok {
		return
	}

	var req struct {
		Text  string `json:"text" binding:"required,max=500"`
		Score int    `json:"score"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "text is required")
		return
	}
	if req.Score < 1 || req.Score > 10 {
		utils.Error(ctx, http.StatusBadRequest, 40031, "score must be between 1 and 10")
		return
	}

	var existing int64
	r.db.Model(&models.Review{}).Where("title_id = ? AND author_id = ?", title.ID, caller.ID).Count(&existing)
	if existing > 0 {
		utils.Error(ctx, http.StatusConflict, 40920, "you have already reviewed this title")
		return
	}

	review := models.Review{
		TitleID:  title.ID,
		AuthorID: caller.ID,
		Text:     utils.Sanitize(req.Text),
		Score:    req.Score,
	}
	if err := r.db.Create(&review).Error; err != nil {
		if isDuplicateErr(err) {
			utils.Error(ctx, http.StatusConflict, 40920, "you have already reviewed this title")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to create review")
		return
	}
	review.Author = *caller

	invalidateTitleReadCaches(title.ID)
	utils.Success(ctx, reviewResponse(review))
}

// UpdateReview edits a review; author, moderators, admins and staff only.
// The duplicate check does not apply here: the (author, title) pair never
// changes on update.
func (r *ReviewController) UpdateReview(ctx *gin.Context) {
	title, ok := r.loadTitle(ctx)
	if !ok {
		return
	}
	review, ok := r.loadReview(ctx, title.ID)
	if !ok {
		return
	}
	if !requirePolicy(ctx, policy.ActionUpdate, policy.Resource{Kind: policy.KindReview, AuthorID: review.AuthorID}) {
		return
	}

	var req struct {
		Text  *string `json:"text" binding:"omitempty,max=500"`
		Score *int    `json:"score"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid request payload")
		return
	}

	if req.Text != nil {
		if *req.Text == "" {
			utils.Error(ctx, http.StatusBadRequest, 40030, "text is required")
			return
		}
		review.Text = utils.Sanitize(*req.Text)
	}
	if req.Score != nil {
		if *req.Score < 1 || *req.Score > 10 {
			utils.Error(ctx, http.StatusBadRequest, 40031, "score must be between 1 and 10")
			return
		}
		review.Score = *req.Score
	}

	if err := r.db.Save(review).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to update review")
		return
	}

	invalidateTitleReadCaches(title.ID)
	utils.Success(ctx, reviewResponse(*review))
}

// DeleteReview removes a review and its comments.
func (r *ReviewController) DeleteReview(ctx *gin.Context) {
	title, ok := r.loadTitle(ctx)
	if !ok {
		return
	}
	review, ok := r.loadReview(ctx, title.ID)
	if !ok {
		return
	}
	if !requirePolicy(ctx, policy.ActionDelete, policy.Resource{Kind: policy.KindReview, AuthorID: review.AuthorID}) {
		return
	}

	if err := r.db.Delete(review).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to delete review")
		return
	}

	invalidateTitleReadCaches(title.ID)
	utils.Success(ctx, gin.H{"message": "review deleted"})
}

// invalidateTitleReadCaches drops cached title reads after a write that can
// change a title's representation or rating.
func invalidateTitleReadCaches(titleID uint) {
	utils.InvalidateByPrefix("cache:titles:list:")
	utils.InvalidateByPrefix(fmt.Sprintf("cache:title:detail:%d", titleID))
}
