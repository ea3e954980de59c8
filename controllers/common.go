package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cvasq/critiq/middleware"
	"github.com/cvasq/critiq/models"
	"github.com/cvasq/critiq/policy"
	"github.com/cvasq/critiq/utils"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page, pageSize := 1, 10
	if v := strings.TrimSpace(pageStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(sizeStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize
}

func paginationPayload(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

// requireAuth returns the caller or writes a 401 for anonymous requests.
// Callers run this only after parent-resource lookups so missing parents
// still surface as 404 regardless of credentials.
func requireAuth(ctx *gin.Context) (*models.User, bool) {
	caller := middleware.CurrentUser(ctx)
	if caller == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
		return nil, false
	}
	return caller, true
}

func requirePolicy(ctx *gin.Context, action policy.Action, res policy.Resource) bool {
	caller, ok := requireAuth(ctx)
	if !ok {
		return false
	}
	if !policy.Allow(caller, action, res) {
		utils.Error(ctx, http.StatusForbidden, 40301, "you do not have permission to perform this action")
		return false
	}
	return true
}

func isDuplicateErr(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
