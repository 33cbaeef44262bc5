package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestConditionsNumbersPlaceholders(t *testing.T) {
	var c conditions
	c.add("category = ?", "Health")
	c.contains("nurse", "title", "description")
	c.add("price BETWEEN ? AND ?", 1, 10)

	query := c.apply("FROM jobs WHERE 1=1")
	assert.Equal(t, "FROM jobs WHERE 1=1 AND category = $1 AND (title ILIKE $2 OR description ILIKE $2) AND price BETWEEN $3 AND $4", query)
	assert.Equal(t, []interface{}{"Health", "%nurse%", 1, 10}, c.args)
}

func TestConditionsEmpty(t *testing.T) {
	var c conditions
	c.contains("", "title")
	assert.Equal(t, "FROM jobs WHERE 1=1", c.apply("FROM jobs WHERE 1=1"))
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\% off\_now%`, likePattern("50% off_now"))
}

func TestOrderByAllowlist(t *testing.T) {
	allowed := map[string]string{"createdAt": "created_at", "title": "title"}
	assert.Equal(t, "ORDER BY title ASC", orderBy("title", "ASC", allowed, "created_at"))
	assert.Equal(t, "ORDER BY created_at DESC", orderBy("password_hash; DROP", "", allowed, "created_at"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
