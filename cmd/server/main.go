package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/harbouli/ai-ecommerce-sub000/internal/embeddings"
	"github.com/harbouli/ai-ecommerce-sub000/internal/graphstore"
	"github.com/harbouli/ai-ecommerce-sub000/internal/hybrid"
	"github.com/harbouli/ai-ecommerce-sub000/internal/kag"
	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/internal/rag"
	"github.com/harbouli/ai-ecommerce-sub000/internal/recommend"
	"github.com/harbouli/ai-ecommerce-sub000/internal/record"
	"github.com/harbouli/ai-ecommerce-sub000/internal/vector"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/config"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting knowledge API server...")

	ctx := context.Background()

	// Record store (authoritative)
	records, err := record.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		log.Fatal("Failed to open record store", zap.Error(err))
	}
	defer records.Close()

	// Relationship store
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(ctx)

	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}
	graph := graphstore.NewNeo4jStore(driver)

	// Embedding provider
	embedder := embeddings.NewOpenAIEmbedder(
		cfg.OpenAIBaseURL,
		cfg.OpenAIAPIKey,
		cfg.EmbeddingModel,
		cfg.EmbeddingDimensions,
	)

	// Similarity store
	var vectors knowledge.SimilarityStore
	switch cfg.VectorBackend {
	case "weaviate":
		vectors, err = vector.NewWeaviateStore(ctx, vector.WeaviateConfig{
			Host:   cfg.WeaviateHost,
			Scheme: cfg.WeaviateScheme,
			APIKey: cfg.WeaviateAPIKey,
			Class:  cfg.WeaviateClass,
		}, embedder)
	default:
		vectors, err = vector.NewSQLiteStore(cfg.SQLitePath, embedder)
	}
	if err != nil {
		log.Fatal("Failed to open similarity store", zap.Error(err))
	}
	defer vectors.Close()

	// Engines
	repo := hybrid.NewRepository(records, graph, vectors, hybrid.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		SearchTimeout:       time.Duration(cfg.SearchTimeoutMS) * time.Millisecond,
	})
	augmenter := kag.NewAugmenter(repo, graph, embedder, cfg.EmbedConcurrency)
	profiles := rag.NewMemoryProfileStore()
	ragEngine := rag.NewEngine(repo, profiles, rag.Options{MinScore: cfg.SimilarityThreshold})
	recommender := recommend.NewEngine(repo, graph)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api")
	{
		// Entity CRUD
		api.POST("/entities", func(c *gin.Context) {
			var entity knowledge.Entity
			if err := c.ShouldBindJSON(&entity); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			result, err := repo.Create(c.Request.Context(), &entity)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, result)
		})

		api.GET("/entities/:id", func(c *gin.Context) {
			entity, err := repo.FindByID(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, entity)
		})

		api.GET("/entities", func(c *gin.Context) {
			ctx := c.Request.Context()
			if name := c.Query("name"); name != "" {
				entities, err := repo.FindByName(ctx, name)
				if err != nil {
					respondError(c, log, err)
					return
				}
				c.JSON(http.StatusOK, entities)
				return
			}

			entityType := knowledge.EntityType(c.Query("type"))
			entities, err := repo.FindByType(ctx, entityType)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, entities)
		})

		api.PUT("/entities/:id", func(c *gin.Context) {
			var patch knowledge.EntityPatch
			if err := c.ShouldBindJSON(&patch); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			result, err := repo.Update(c.Request.Context(), c.Param("id"), patch)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, result)
		})

		api.DELETE("/entities/:id", func(c *gin.Context) {
			found, sync, err := repo.Delete(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			if !found {
				c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"deleted": true, "sync": sync})
		})

		api.POST("/entities/:id/resync", func(c *gin.Context) {
			result, err := repo.Resync(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, result)
		})

		// Relationships
		api.POST("/relationships", func(c *gin.Context) {
			var rel knowledge.Relationship
			if err := c.ShouldBindJSON(&rel); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			merged, err := graph.UpsertRelationship(c.Request.Context(), &rel)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, merged)
		})

		api.GET("/relationships/:id", func(c *gin.Context) {
			rels, err := graph.FindRelationships(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, rels)
		})

		// Graph traversal and analytics
		api.GET("/graph/related/:id", func(c *gin.Context) {
			hops := queryInt(c, "hops", 2)
			related, err := repo.FindRelated(c.Request.Context(), c.Param("id"), hops)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, related)
		})

		api.GET("/graph/path", func(c *gin.Context) {
			from, to := c.Query("from"), c.Query("to")
			if from == "" || to == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
				return
			}

			path, err := graph.ShortestPath(c.Request.Context(), from, to)
			if err != nil {
				respondError(c, log, err)
				return
			}
			if path == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "No path found"})
				return
			}
			c.JSON(http.StatusOK, path)
		})

		api.GET("/graph/analytics/:id", func(c *gin.Context) {
			ctx := c.Request.Context()
			id := c.Param("id")

			degree, err := graph.Degree(ctx, id)
			if err != nil {
				respondError(c, log, err)
				return
			}
			coefficient, err := graph.ClusteringCoefficient(ctx, id)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"entity_id":              id,
				"degree":                 degree,
				"clustering_coefficient": coefficient,
			})
		})

		api.GET("/graph/influence", func(c *gin.Context) {
			scores, err := graph.RankInfluence(c.Request.Context(), queryInt(c, "limit", 10))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, scores)
		})

		// Knowledge graph construction
		api.POST("/graph/build", func(c *gin.Context) {
			var req struct {
				Products []kag.Product `json:"products" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			report, err := augmenter.Build(c.Request.Context(), req.Products)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, report)
		})

		api.POST("/graph/refresh/:id", func(c *gin.Context) {
			report, err := augmenter.UpdateRelationships(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, report)
		})

		// Search
		api.POST("/search/hybrid", func(c *gin.Context) {
			var req struct {
				Query   string         `json:"query" binding:"required"`
				Filters hybrid.Filters `json:"filters"`
				Limit   int            `json:"limit"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			results, err := repo.HybridSearch(c.Request.Context(), req.Query, req.Filters, req.Limit)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, results)
		})

		api.POST("/search/semantic", func(c *gin.Context) {
			var req struct {
				Query string `json:"query" binding:"required"`
				Limit int    `json:"limit"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			results, err := repo.SemanticSearch(c.Request.Context(), req.Query, req.Limit)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, results)
		})

		// Recommendations
		api.GET("/recommendations/:id", func(c *gin.Context) {
			results, err := recommender.FindRecommendations(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 10))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, results)
		})

		// Retrieval-augmented context
		api.POST("/rag/retrieve", func(c *gin.Context) {
			var req struct {
				Query  string `json:"query" binding:"required"`
				UserID string `json:"user_id"`
				Limit  int    `json:"limit"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			contexts, err := ragEngine.RetrieveRelevantContext(c.Request.Context(), req.Query, req.UserID, req.Limit)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"contexts":        contexts,
				"augmented_query": rag.AugmentQueryWithContext(req.Query, contexts),
			})
		})

		// User profiles for personalization
		api.PUT("/profiles/:id", func(c *gin.Context) {
			var profile rag.UserProfile
			if err := c.ShouldBindJSON(&profile); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			profile.UserID = c.Param("id")
			profiles.Put(&profile)
			c.JSON(http.StatusOK, gin.H{"status": "updated"})
		})
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// respondError maps the error taxonomy onto HTTP statuses
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsRateLimited(err):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Embedding provider rate limited"})
	default:
		log.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
