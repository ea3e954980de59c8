package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cvasq/critiq/config"
	"github.com/cvasq/critiq/models"
	"github.com/cvasq/critiq/routes"
	"github.com/cvasq/critiq/utils"
)

var testDBSeq int64

func testConfig() config.AppConfig {
	return config.AppConfig{
		AppPort:   "0",
		JWTSecret: "test-secret",
		GinMode:   "test",
		// Point at a closed port so every Redis-backed helper takes its
		// in-memory fallback path.
		RedisHost:           "127.0.0.1",
		RedisPort:           6390,
		AllowedOrigins:      []string{"*"},
		LogLevel:            "error",
		RateLimitPerMinute:  100000,
		EmailCooldownSec:    60,
		ConfirmationTTLMin:  10,
		AccessTokenTTLHours: 1,
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:critiq_test_%d?mode=memory&cache=shared&_foreign_keys=on",
		atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared in-memory database alive and
	// avoids sqlite table locks under the connection pool.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Genre{},
		&models.Title{},
		&models.Review{},
		&models.Comment{},
	))
	return db
}

func setupTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	config.SetForTesting(testConfig())
	db := openTestDB(t)
	return routes.SetupRouter(db), db
}

func createTestUser(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func bearerFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func seedCategory(t *testing.T, db *gorm.DB, name, slug string) models.Category {
	t.Helper()
	category := models.Category{Name: name, Slug: slug}
	require.NoError(t, db.Create(&category).Error)
	return category
}

func seedGenre(t *testing.T, db *gorm.DB, name, slug string) models.Genre {
	t.Helper()
	genre := models.Genre{Name: name, Slug: slug}
	require.NoError(t, db.Create(&genre).Error)
	return genre
}

func seedTitle(t *testing.T, db *gorm.DB, name string, year int) models.Title {
	t.Helper()
	title := models.Title{Name: name, Year: year}
	require.NoError(t, db.Create(&title).Error)
	return title
}

func attachGenre(t *testing.T, db *gorm.DB, title *models.Title, genre models.Genre) {
	t.Helper()
	require.NoError(t, db.Model(title).Association("Genres").Append(&genre))
}

func seedReview(t *testing.T, db *gorm.DB, titleID, authorID uint, score int) models.Review {
	t.Helper()
	review := models.Review{TitleID: titleID, AuthorID: authorID, Text: "seeded review", Score: score}
	require.NoError(t, db.Create(&review).Error)
	return review
}

func seedComment(t *testing.T, db *gorm.DB, titleID, reviewID, authorID uint, text string) models.Comment {
	t.Helper()
	comment := models.Comment{TitleID: titleID, ReviewID: reviewID, AuthorID: authorID, Text: text}
	require.NoError(t, db.Create(&comment).Error)
	return comment
}

func doJSON(r *gin.Engine, method, path string, body interface{}, authHeader string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func dataObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	env := decodeEnvelope(t, w)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

// listItems pulls data.items from a paginated list response.
func listItems(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	data := dataObject(t, w)
	raw, ok := data["items"].([]interface{})
	require.True(t, ok, "response data has no items array")
	items := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		item, ok := entry.(map[string]interface{})
		require.True(t, ok)
		items = append(items, item)
	}
	return items
}
