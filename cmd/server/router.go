package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Skufu/symptomrx/internal/engine"
)

type routerOptions struct {
	CORSOrigins []string
	RateLimit   float64 // requests per second; <= 0 disables limiting
	RateBurst   int
}

type symptomRequest struct {
	Symptoms []string `json:"symptoms"`
}

func setupRouter(eng *engine.Engine, db HealthChecker, opts routerOptions) *gin.Engine {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		requestID(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	})

	api := router.Group("/api")
	if opts.RateLimit > 0 {
		api.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))))
	}

	api.GET("/symptoms", func(c *gin.Context) {
		entries := eng.Symptoms().Entries()
		c.JSON(http.StatusOK, gin.H{"count": len(entries), "symptoms": entries})
	})

	api.GET("/diseases", func(c *gin.Context) {
		entries := eng.Labels().Entries()
		c.JSON(http.StatusOK, gin.H{"count": len(entries), "diseases": entries})
	})

	api.POST("/encode", func(c *gin.Context) {
		symptoms, ok := bindSymptoms(c)
		if !ok {
			return
		}
		vec, err := eng.Encode(symptoms)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		values := make([]int, len(vec))
		for i, b := range vec {
			values[i] = int(b)
		}
		c.JSON(http.StatusOK, gin.H{"size": len(vec), "vector": values, "indices": vec.Ones()})
	})

	api.POST("/predict", func(c *gin.Context) {
		symptoms, ok := bindSymptoms(c)
		if !ok {
			return
		}
		rec, err := eng.Recommend(symptoms)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	api.GET("/diseases/:name/recommendations", func(c *gin.Context) {
		name := c.Param("name")
		bundle, err := eng.Aggregate(name)
		if err != nil {
			if _, known := eng.Labels().ClassIndex(name); !known && errors.Is(err, engine.ErrMissingReferenceRow) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown_disease", "disease": name})
				return
			}
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"disease": name, "recommendations": bundle})
	})

	return router
}

// bindSymptoms decodes the request body and normalizes its symptom names.
// It writes the 400 response itself when the payload is unusable.
func bindSymptoms(c *gin.Context) ([]string, bool) {
	var payload symptomRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return nil, false
	}
	symptoms := normalizeSymptoms(payload.Symptoms)
	if len(symptoms) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "select at least one symptom"})
		return nil, false
	}
	return symptoms, true
}

func writeEngineError(c *gin.Context, err error) {
	var (
		unknown  *engine.UnknownSymptomError
		badClass *engine.UnknownClassIndexError
		badShape *engine.InvalidVectorShapeError
	)
	switch {
	case errors.As(err, &unknown):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "unknown_symptom",
			"symptom": unknown.Symptom,
		})
	case errors.Is(err, engine.ErrMissingReferenceRow):
		missing := []string{}
		disease := ""
		for _, m := range engine.MissingFields(err) {
			missing = append(missing, m.Field)
			disease = m.Disease
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "incomplete_reference_data",
			"disease": disease,
			"missing": missing,
		})
	case errors.As(err, &badClass):
		logFailure(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "model_label_mismatch",
			"classIndex": badClass.ClassIndex,
		})
	case errors.As(err, &badShape):
		logFailure(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "model_shape_mismatch",
			"got":   badShape.Got,
			"want":  badShape.Want,
		})
	default:
		logFailure(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
	}
}

func logFailure(c *gin.Context, err error) {
	log.Printf("request %s (trace %s) failed: %v", c.GetString(requestIDKey), traceID(c.Request.Context()), err)
}
