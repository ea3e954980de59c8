package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cvasq/critiq/models"
	"github.com/cvasq/critiq/policy"
	"github.com/cvasq/critiq/utils"
)

// UserController manages user accounts. Everything except /users/me is
// restricted to admins; records are addressed by username.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new UserController instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// ListUsers returns users ordered by username, optionally filtered by a
// username search term.
func (u *UserController) ListUsers(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionRead, policy.Resource{Kind: policy.KindUser}) {
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))

	query := u.db.Model(&models.User{})
	if search != "" {
		query = query.Where("username LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to count users")
		return
	}

	var users []models.User
	if err := query.Order("username ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to list users")
		return
	}

	items := make([]gin.H, 0, len(users))
	for _, user := range users {
		items = append(items, userResponse(user))
	}
	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// CreateUser lets an admin provision an account directly.
func (u *UserController) CreateUser(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionCreate, policy.Resource{Kind: policy.KindUser}) {
		return
	}

	var req struct {
		Username  string `json:"username" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Bio       string `json:"bio"`
		Role      string `json:"role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "username and a valid email are required")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		utils.Error(ctx, http.StatusBadRequest, 40012, "role must be one of user, moderator, admin")
		return
	}

	user := models.User{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Bio:       utils.Sanitize(req.Bio),
		Role:      role,
		IsActive:  true,
	}
	if err := u.db.Create(&user).Error; err != nil {
		if isDuplicateErr(err) {
			utils.Error(ctx, http.StatusConflict, 40910, "username or email already in use")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to create user")
		return
	}

	utils.Success(ctx, userResponse(user))
}

// GetUser returns a single user by username. The literal username "me"
// targets the caller and needs no admin role.
func (u *UserController) GetUser(ctx *gin.Context) {
	if ctx.Param("username") == "me" {
		u.Me(ctx)
		return
	}
	if !requirePolicy(ctx, policy.ActionRead, policy.Resource{Kind: policy.KindUser}) {
		return
	}
	user, ok := u.loadByUsername(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, userResponse(*user))
}

// UpdateUser partially updates a user by username. PATCH /users/me lets any
// authenticated caller update themself.
func (u *UserController) UpdateUser(ctx *gin.Context) {
	if ctx.Param("username") == "me" && ctx.Request.Method == http.MethodPatch {
		u.UpdateMe(ctx)
		return
	}
	if !requirePolicy(ctx, policy.ActionUpdate, policy.Resource{Kind: policy.KindUser}) {
		return
	}
	user, ok := u.loadByUsername(ctx)
	if !ok {
		return
	}
	u.applyPatch(ctx, user, true)
}

// DeleteUser removes a user; their reviews and comments go with them.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	if !requirePolicy(ctx, policy.ActionDelete, policy.Resource{Kind: policy.KindUser}) {
		return
	}
	user, ok := u.loadByUsername(ctx)
	if !ok {
		return
	}
	if err := u.db.Delete(user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to delete user")
		return
	}
	utils.InvalidateByPrefix("cache:title")
	utils.Success(ctx, gin.H{"message": "user deleted"})
}

// Me returns the caller's own representation.
func (u *UserController) Me(ctx *gin.Context) {
	caller, ok := requireAuth(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, userResponse(*caller))
}

// UpdateMe partially updates the caller's own representation. No id or
// username parameter is accepted; the target is always the caller.
func (u *UserController) UpdateMe(ctx *gin.Context) {
	caller, ok := requireAuth(ctx)
	if !ok {
		return
	}
	u.applyPatch(ctx, caller, false)
}

func (u *UserController) loadByUsername(ctx *gin.Context) (*models.User, bool) {
	username := strings.TrimSpace(ctx.Param("username"))
	var user models.User
	if err := u.db.Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load user")
		return nil, false
	}
	return &user, true
}

// applyPatch applies a partial update using the shared user representation.
// Pointer fields distinguish absent keys from explicit empty values. Role is
// read-only unless allowRole is set; self-service updates silently keep the
// caller's current role.
func (u *UserController) applyPatch(ctx *gin.Context, user *models.User, allowRole bool) {
	var req struct {
		Username  *string `json:"username"`
		Email     *string `json:"email" binding:"omitempty,email"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Bio       *string `json:"bio"`
		Role      *string `json:"role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid request payload")
		return
	}

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			utils.Error(ctx, http.StatusBadRequest, 40014, "username cannot be empty")
			return
		}
		user.Username = name
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Bio != nil {
		user.Bio = utils.Sanitize(*req.Bio)
	}
	if req.Role != nil && allowRole {
		if !models.ValidRole(*req.Role) {
			utils.Error(ctx, http.StatusBadRequest, 40012, "role must be one of user, moderator, admin")
			return
		}
		user.Role = *req.Role
	}

	if err := u.db.Save(user).Error; err != nil {
		if isDuplicateErr(err) {
			utils.Error(ctx, http.StatusConflict, 40910, "username or email already in use")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to update user")
		return
	}

	utils.Success(ctx, userResponse(*user))
}
