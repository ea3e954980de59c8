package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvasq/critiq/models"
)

func commentsPath(titleID, reviewID uint) string {
	return fmt.Sprintf("/api/v1/titles/%d/reviews/%d/comments", titleID, reviewID)
}

func commentPath(titleID, reviewID, commentID uint) string {
	return fmt.Sprintf("/api/v1/titles/%d/reviews/%d/comments/%d", titleID, reviewID, commentID)
}

func TestCreateComment(t *testing.T) {
	r, db := setupTest(t)
	author := createTestUser(t, db, "author", models.RoleUser)
	commenter := createTestUser(t, db, "commenter", models.RoleUser)
	title := seedTitle(t, db, "Discussed Work", 2012)
	review := seedReview(t, db, title.ID, author.ID, 6)

	w := doJSON(r, http.MethodPost, commentsPath(title.ID, review.ID),
		gin.H{"text": "well said"}, bearerFor(t, commenter))
	require.Equal(t, http.StatusOK, w.Code)
	data := dataObject(t, w)
	assert.Equal(t, "well said", data["text"])
	assert.Equal(t, "commenter", data["author"])

	// Anonymous reads see the comment.
	w = doJSON(r, http.MethodGet, commentsPath(title.ID, review.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listItems(t, w), 1)
}

func TestCommentParentResolution(t *testing.T) {
	r, db := setupTest(t)
	author := createTestUser(t, db, "author", models.RoleUser)
	title := seedTitle(t, db, "Anchored Work", 1999)
	review := seedReview(t, db, title.ID, author.ID, 6)

	// Missing title wins over everything, even for anonymous writes.
	w := doJSON(r, http.MethodPost, commentsPath(9999, review.ID), gin.H{"text": "lost"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Real title, missing review.
	w = doJSON(r, http.MethodPost, commentsPath(title.ID, 9999), gin.H{"text": "lost"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Both parents resolve, then authentication applies.
	w = doJSON(r, http.MethodPost, commentsPath(title.ID, review.ID), gin.H{"text": "lost"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A comment under a different review does not resolve through this one.
	other := seedTitle(t, db, "Second Work", 2000)
	otherReview := seedReview(t, db, other.ID, author.ID, 4)
	comment := seedComment(t, db, other.ID, otherReview.ID, author.ID, "elsewhere")
	w = doJSON(r, http.MethodGet, commentPath(title.ID, review.ID, comment.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCommentPermissions(t *testing.T) {
	r, db := setupTest(t)
	author := createTestUser(t, db, "author", models.RoleUser)
	commenter := createTestUser(t, db, "commenter", models.RoleUser)
	stranger := createTestUser(t, db, "stranger", models.RoleUser)
	title := seedTitle(t, db, "Edited Work", 2018)
	review := seedReview(t, db, title.ID, author.ID, 6)
	comment := seedComment(t, db, title.ID, review.ID, commenter.ID, "original")

	path := commentPath(title.ID, review.ID, comment.ID)

	w := doJSON(r, http.MethodPatch, path, gin.H{"text": "hijacked"}, bearerFor(t, stranger))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodPatch, path, gin.H{"text": "revised"}, bearerFor(t, commenter))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "revised", dataObject(t, w)["text"])
}

func TestDeleteCommentPermissions(t *testing.T) {
	r, db := setupTest(t)
	author := createTestUser(t, db, "author", models.RoleUser)
	commenter := createTestUser(t, db, "commenter", models.RoleUser)
	moderator := createTestUser(t, db, "mod", models.RoleModerator)
	title := seedTitle(t, db, "Cleaned Work", 2018)
	review := seedReview(t, db, title.ID, author.ID, 6)

	mine := seedComment(t, db, title.ID, review.ID, commenter.ID, "mine")
	flagged := seedComment(t, db, title.ID, review.ID, author.ID, "flagged")

	w := doJSON(r, http.MethodDelete, commentPath(title.ID, review.ID, mine.ID), nil, bearerFor(t, commenter))
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodDelete, commentPath(title.ID, review.ID, flagged.ID), nil, bearerFor(t, commenter))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodDelete, commentPath(title.ID, review.ID, flagged.ID), nil, bearerFor(t, moderator))
	assert.Equal(t, http.StatusOK, w.Code)

	var remaining int64
	db.Model(&models.Comment{}).Where("review_id = ?", review.ID).Count(&remaining)
	assert.Zero(t, remaining)
}

func TestCreateCommentValidation(t *testing.T) {
	r, db := setupTest(t)
	author := createTestUser(t, db, "author", models.RoleUser)
	title := seedTitle(t, db, "Terse Work", 2018)
	review := seedReview(t, db, title.ID, author.ID, 6)

	w := doJSON(r, http.MethodPost, commentsPath(title.ID, review.ID), gin.H{}, bearerFor(t, author))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
