package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/harbouli/ai-ecommerce-sub000/internal/kag"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
)

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestHybridSearchEndpoint_InvalidRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.POST("/api/search/hybrid", func(c *gin.Context) {
		var req struct {
			Query string `json:"query" binding:"required"`
			Limit int    `json:"limit"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, []interface{}{})
	})

	// Missing query field
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/search/hybrid", bytes.NewBuffer([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuildEndpoint_BindsProducts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	var got []kag.Product
	router.POST("/api/graph/build", func(c *gin.Context) {
		var req struct {
			Products []kag.Product `json:"products" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		got = req.Products
		c.JSON(http.StatusOK, gin.H{"productsProcessed": len(req.Products)})
	})

	body := []byte(`{"products":[{"id":"p1","name":"Headphones","category":"Audio","price":99.5,"tags":["wireless"]}]}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/graph/build", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, 99.5, got[0].Price)
}

func TestRespondError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.Get()

	cases := []struct {
		err    error
		status int
	}{
		{apperrors.NewEntityNotFound("p1"), http.StatusNotFound},
		{apperrors.NewValidation("name", "empty"), http.StatusBadRequest},
		{apperrors.NewUpstreamProvider("openai", true, nil), http.StatusTooManyRequests},
		{apperrors.NewStoreUnavailable("neo4j", nil), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, log, tc.err)
		assert.Equal(t, tc.status, w.Code)
	}
}
