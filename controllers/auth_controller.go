package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cvasq/critiq/config"
	"github.com/cvasq/critiq/models"
	"github.com/cvasq/critiq/utils"
)

// AuthController implements the two-step email confirmation flow: a code is
// mailed to the address, then exchanged for a bearer token. No passwords and
// no server-side session exist between the two steps.
type AuthController struct {
	db *gorm.DB
	// mail is swappable in tests; defaults to the SMTP mailer.
	mail func(to, subject, body string) error
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db, mail: utils.SendMail}
}

// SendConfirmationCode creates the user on first contact and emails a
// single-use confirmation code. The code never appears in the response.
func (a *AuthController) SendConfirmationCode(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "a valid email is required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	cfg := config.Get()
	if !utils.EmailCooldownTrySet(email, time.Duration(cfg.EmailCooldownSec)*time.Second) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "a code was sent recently, please wait before retrying")
		return
	}

	user, err := a.getOrCreateUser(email)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to prepare account")
		return
	}

	code := utils.GenerateConfirmationCode(6)
	subject := "Critiq confirmation code"
	body := fmt.Sprintf("Your confirmation code is: %s\nIt is valid for %d minutes.", code, cfg.ConfirmationTTLMin)
	if err := a.mail(user.Email, subject, body); err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("confirmation mail to %s failed: %v", email, err)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to send confirmation code")
		return
	}
	// Save only after the mail went out so undeliverable codes do not pile up.
	utils.SaveCode(email, code, time.Duration(cfg.ConfirmationTTLMin)*time.Minute)

	utils.Success(ctx, gin.H{"message": "confirmation code sent"})
}

// IssueToken exchanges email + confirmation code for a bearer token. A wrong
// code and an unknown email produce the identical error so callers cannot
// probe which addresses are registered.
func (a *AuthController) IssueToken(ctx *gin.Context) {
	var req struct {
		Email            string `json:"email" binding:"required,email"`
		ConfirmationCode string `json:"confirmation_code" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "email and confirmation_code are required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		a.rejectExchange(ctx)
		return
	}

	if !utils.VerifyAndConsumeCode(email, strings.TrimSpace(req.ConfirmationCode)) {
		a.rejectExchange(ctx)
		return
	}

	cfg := config.Get()
	token, err := utils.GenerateToken(user.ID, user.Username, time.Duration(cfg.AccessTokenTTLHours)*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token})
}

func (a *AuthController) rejectExchange(ctx *gin.Context) {
	utils.Error(ctx, http.StatusBadRequest, 40003, "invalid confirmation code or email")
}

// getOrCreateUser returns the account for email, creating one with a
// derived username when the address is new.
func (a *AuthController) getOrCreateUser(email string) (*models.User, error) {
	var user models.User
	err := a.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Username: a.deriveUsername(email),
		Email:    email,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := a.db.Create(&user).Error; err != nil {
		// Concurrent first-contact requests for the same address collide on
		// the unique email index; the winner's row is the account.
		if isDuplicateErr(err) {
			if lookupErr := a.db.Where("email = ?", email).First(&user).Error; lookupErr == nil {
				return &user, nil
			}
		}
		return nil, err
	}
	return &user, nil
}

func (a *AuthController) deriveUsername(email string) string {
	base := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		base = email[:at]
	}
	var count int64
	a.db.Model(&models.User{}).Where("username = ?", base).Count(&count)
	if count == 0 {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}
