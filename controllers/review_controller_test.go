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

func reviewsPath(titleID uint) string {
	return fmt.Sprintf("/api/v1/titles/%d/reviews", titleID)
}

func reviewPath(titleID, reviewID uint) string {
	return fmt.Sprintf("/api/v1/titles/%d/reviews/%d", titleID, reviewID)
}

func TestCreateReview(t *testing.T) {
	r, db := setupTest(t)
	alice := createTestUser(t, db, "alice", models.RoleUser)
	title := seedTitle(t, db, "Reviewed Work", 2005)

	w := doJSON(r, http.MethodPost, reviewsPath(title.ID),
		gin.H{"text": "a fine piece", "score": 8}, bearerFor(t, alice))
	require.Equal(t, http.StatusOK, w.Code)
	data := dataObject(t, w)
	assert.Equal(t, "a fine piece", data["text"])
	assert.Equal(t, "alice", data["author"])
	assert.Equal(t, float64(8), data["score"])

	// The title's rating reflects the new review.
	w = doJSON(r, http.MethodGet, fmt.Sprintf("/api/v1/titles/%d", title.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(8), dataObject(t, w)["rating"])
}

func TestCreateReviewScoreBounds(t *testing.T) {
	r, db := setupTest(t)
	alice := createTestUser(t, db, "alice", models.RoleUser)
	bob := createTestUser(t, db, "bob", models.RoleUser)
	low := seedTitle(t, db, "Low End", 2000)
	high := seedTitle(t, db, "High End", 2001)

	for _, score := range []int{0, 11, -3} {
		w := doJSON(r, http.MethodPost, reviewsPath(low.ID),
			gin.H{"text": "out of range", "score": score}, bearerFor(t, alice))
		assert.Equalf(t, http.StatusBadRequest, w.Code, "score %d must be rejected", score)
	}

	w := doJSON(r, http.MethodPost, reviewsPath(low.ID),
		gin.H{"text": "bottom of the scale", "score": 1}, bearerFor(t, alice))
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, reviewsPath(high.ID),
		gin.H{"text": "top of the scale", "score": 10}, bearerFor(t, bob))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateReviewOncePerAuthor(t *testing.T) {
	r, db := setupTest(t)
	alice := createTestUser(t, db, "alice", models.RoleUser)
	bob := createTestUser(t, db, "bob", models.RoleUser)
	title := seedTitle(t, db, "Popular Work", 1995)

	w := doJSON(r, http.MethodPost, reviewsPath(title.ID),
		gin.H{"text": "first impressions", "score": 4}, bearerFor(t, alice))
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, reviewsPath(title.ID),
		gin.H{"text": "second thoughts", "score": 9}, bearerFor(t, alice))
	assert.Equal(t, http.StatusConflict, w.Code)

	// A different author reviews freely.
	w = doJSON(r, http.MethodPost, reviewsPath(title.ID),
		gin.H{"text": "my own take", "score": 10}, bearerFor(t, bob))
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/api/v1/titles/%d", title.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), dataObject(t, w)["rating"])
}

func TestReviewMissingParentBeatsAuth(t *testing.T) {
	r, db := setupTest(t)
	alice := createTestUser(t, db, "alice", models.RoleUser)

	// An anonymous write against a missing title answers 404, not 401.
	w := doJSON(r, http.MethodPost, "/api/v1/titles/9999/reviews",
		gin.H{"text": "into the void", "score": 5}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// With a real title but no credential the same write is a 401.
	title := seedTitle(t, db, "Guarded Work", 2010)
	w = doJSON(r, http.MethodPost, reviewsPath(title.ID),
		gin.H{"text": "anonymous", "score": 5}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A review id from another title does not resolve.
	other := seedTitle(t, db, "Other Work", 2011)
	review := seedReview(t, db, other.ID, alice.ID, 6)
	w = doJSON(r, http.MethodGet, reviewPath(title.ID, review.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReviews(t *testing.T) {
	r, db := setupTest(t)
	alice := createTestUser(t, db, "alice", models.RoleUser)
	bob := createTestUser(t, db, "bob", models.RoleUser)
	title := seedTitle(t, db, "Listed Work", 1988)
	seedReview(t, db, title.ID, alice.ID, 3)
	seedReview(t, db, title.ID, bob.ID, 9)

	w := doJSON(r, http.MethodGet, reviewsPath(title.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	items := listItems(t, w)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Contains(t, item, "author")
		assert.Contains(t, item, "pub_date")
	}
}

func TestUpdateReviewPermissions(t *testing.T) {
	r, db := setupTest(t)
	author := createTestUser(t, db, "author", models.RoleUser)
	stranger := createTestUser(t, db, "stranger", models.RoleUser)
	moderator := createTestUser(t, db, "mod", models.RoleModerator)
	title := seedTitle(t, db, "Contested Work", 1975)
	review := seedReview(t, db, title.ID, author.ID, 5)

	path := reviewPath(title.ID, review.ID)

	// Anyone may read.
	w := doJSON(r, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPatch, path, gin.H{"score": 2}, bearerFor(t, stranger))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodPatch, path, gin.H{"text": "edited by author", "score": 6}, bearerFor(t, author))
	require.Equal(t, http.StatusOK, w.Code)
	data := dataObject(t, w)
	assert.Equal(t, "edited by author", data["text"])
	assert.Equal(t, float64(6), data["score"])

	w = doJSON(r, http.MethodPatch, path, gin.H{"text": "cleaned up"}, bearerFor(t, moderator))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteReviewPermissions(t *testing.T) {
	r, db := setupTest(t)
	author := createTestUser(t, db, "author", models.RoleUser)
	stranger := createTestUser(t, db, "stranger", models.RoleUser)
	moderator := createTestUser(t, db, "mod", models.RoleModerator)
	title := seedTitle(t, db, "Moderated Work", 1960)
	review := seedReview(t, db, title.ID, author.ID, 5)
	seedComment(t, db, title.ID, review.ID, stranger.ID, "attached comment")

	path := reviewPath(title.ID, review.ID)

	w := doJSON(r, http.MethodDelete, path, nil, bearerFor(t, stranger))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodDelete, path, nil, bearerFor(t, moderator))
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Comments go with their review.
	var comments int64
	db.Model(&models.Comment{}).Where("review_id = ?", review.ID).Count(&comments)
	assert.Zero(t, comments)
}

func TestUpdateReviewValidation(t *testing.T) {
	r, db := setupTest(t)
	author := createTestUser(t, db, "author", models.RoleUser)
	title := seedTitle(t, db, "Strict Work", 2015)
	review := seedReview(t, db, title.ID, author.ID, 5)

	path := reviewPath(title.ID, review.ID)
	w := doJSON(r, http.MethodPatch, path, gin.H{"score": 42}, bearerFor(t, author))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPatch, path, gin.H{"text": ""}, bearerFor(t, author))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
