package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cvasq/critiq/models"
)

// Explicit wire shapes per entity. Each function enumerates exactly the
// fields the endpoint exposes; nothing is inferred from the model structs.

func userResponse(u models.User) gin.H {
	return gin.H{
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"username":   u.Username,
		"bio":        u.Bio,
		"email":      u.Email,
		"role":       u.Role,
	}
}

// categoryResponse is the top-level /categories shape.
func categoryResponse(c models.Category) gin.H {
	return gin.H{
		"id":   c.ID,
		"name": c.Name,
		"slug": c.Slug,
	}
}

// genreResponse is the top-level /genres shape.
func genreResponse(g models.Genre) gin.H {
	return gin.H{
		"id":   g.ID,
		"name": g.Name,
		"slug": g.Slug,
	}
}

// nestedCategory is the shape used inside a title; no internal identifier.
func nestedCategory(c *models.Category) interface{} {
	if c == nil {
		return nil
	}
	return gin.H{"name": c.Name, "slug": c.Slug}
}

func nestedGenres(genres []models.Genre) []gin.H {
	out := make([]gin.H, 0, len(genres))
	for _, g := range genres {
		out = append(out, gin.H{"name": g.Name, "slug": g.Slug})
	}
	return out
}

// titleResponse is the read shape: rating is the mean review score and null
// when the title has no reviews.
func titleResponse(t models.Title, rating *float64) gin.H {
	return gin.H{
		"id":          t.ID,
		"name":        t.Name,
		"year":        t.Year,
		"description": t.Description,
		"genre":       nestedGenres(t.Genres),
		"category":    nestedCategory(t.Category),
		"rating":      rating,
	}
}

// reviewResponse substitutes the author's username for their identifier.
func reviewResponse(r models.Review) gin.H {
	return gin.H{
		"id":       r.ID,
		"text":     r.Text,
		"author":   r.Author.Username,
		"score":    r.Score,
		"pub_date": r.CreatedAt,
	}
}

func commentResponse(c models.Comment) gin.H {
	return gin.H{
		"id":       c.ID,
		"text":     c.Text,
		"author":   c.Author.Username,
		"pub_date": c.CreatedAt,
	}
}
