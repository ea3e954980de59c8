package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cvasq/critiq/models"
	"github.com/cvasq/critiq/policy"
	"github.com/cvasq/critiq/utils"
)

// CommentController manages comments nested under a (title, review) pair.
// Both parents are resolved, in order, before anything else happens.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// loadParents resolves the title and the review scoped to it.
func (c *CommentController) loadParents(ctx *gin.Context) (*models.Title, *models.Review, bool) {
	var title models.Title
	if err := c.db.First(&title, "id = ?", ctx.Param("title_id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "title not found")
			return nil, nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load title")
		return nil, nil, false
	}

	var review models.Review
	err := c.db.Where("id = ? AND title_id = ?", ctx.Param("review_id"), title.ID).First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "review not found")
			return nil, nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load review")
		return nil, nil, false
	}
	return &title, &review, true
}

func (c *CommentController) loadComment(ctx *gin.Context, reviewID uint) (*models.Comment, bool) {
	var comment models.Comment
	err := c.db.Preload("Author").
		Where("id = ? AND review_id = ?", ctx.Param("comment_id"), reviewID).
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "comment not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load comment")
		return nil, false
	}
	return &comment, true
}

// ListComments returns a review's comments, newest first.
func (c *CommentController) ListComments(ctx *gin.Context) {
	_, review, ok := c.loadParents(ctx)
	if !ok {
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := c.db.Model(&models.Comment{}).Where("review_id = ?", review.ID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to count comments")
		return
	}

	var comments []models.Comment
	err := c.db.Preload("Author").
		Where("review_id = ?", review.ID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&comments).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to list comments")
		return
	}

	items := make([]gin.H, 0, len(comments))
	for _, comment := range comments {
		items = append(items, commentResponse(comment))
	}
	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// GetComment returns a single comment.
func (c *CommentController) GetComment(ctx *gin.Context) {
	_, review, ok := c.loadParents(ctx)
	if !ok {
		return
	}
	comment, ok := c.loadComment(ctx, review.ID)
	if !ok {
		return
	}
	utils.Success(ctx, commentResponse(*comment))
}

// CreateComment adds the caller's comment to a review.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	title, review, ok := c.loadParents(ctx)
	if !ok {
		return
	}
	caller, ok := requireAuth(ctx)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required,max=300"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "text is required")
		return
	}

	comment := models.Comment{
		TitleID:  title.ID,
		ReviewID: review.ID,
		AuthorID: caller.ID,
		Text:     utils.Sanitize(req.Text),
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to create comment")
		return
	}
	comment.Author = *caller

	utils.Success(ctx, commentResponse(comment))
}

// UpdateComment edits a comment; author, moderators, admins and staff only.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	_, review, ok := c.loadParents(ctx)
	if !ok {
		return
	}
	comment, ok := c.loadComment(ctx, review.ID)
	if !ok {
		return
	}
	if !requirePolicy(ctx, policy.ActionUpdate, policy.Resource{Kind: policy.KindComment, AuthorID: comment.AuthorID}) {
		return
	}

	var req struct {
		Text *string `json:"text" binding:"omitempty,max=300"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid request payload")
		return
	}
	if req.Text != nil {
		if *req.Text == "" {
			utils.Error(ctx, http.StatusBadRequest, 40060, "text is required")
			return
		}
		comment.Text = utils.Sanitize(*req.Text)
	}

	if err := c.db.Save(comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to update comment")
		return
	}

	utils.Success(ctx, commentResponse(*comment))
}

// DeleteComment removes a comment.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	_, review, ok := c.loadParents(ctx)
	if !ok {
		return
	}
	comment, ok := c.loadComment(ctx, review.ID)
	if !ok {
		return
	}
	if !requirePolicy(ctx, policy.ActionDelete, policy.Resource{Kind: policy.KindComment, AuthorID: comment.AuthorID}) {
		return
	}

	if err := c.db.Delete(comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to delete comment")
		return
	}

	utils.Success(ctx, gin.H{"message": "comment deleted"})
}
