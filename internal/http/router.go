package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/fieldops/backend/internal/config"
	"github.com/fieldops/backend/internal/db"
	"github.com/fieldops/backend/internal/http/handlers"
	"github.com/fieldops/backend/internal/http/middleware"
	"github.com/fieldops/backend/internal/service"
	"github.com/fieldops/backend/internal/sla"

	_ "github.com/fieldops/backend/docs"
)

func Router(cfg config.Config, store *db.Store, dispatcher *service.Dispatcher, engine *sla.Engine, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader, "X-Actor"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:      store,
		Dispatcher: dispatcher,
		SLA:        engine,
		Validator:  validator.New(),
		Logger:     logger,
		AdminKey:   cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/jobs", h.JobsList)
		api.GET("/jobs/:id", h.JobDetails)
		api.GET("/jobs/:id/candidates", h.Candidates)
		api.GET("/technicians", h.TechniciansList)
		api.GET("/technicians/:id/itinerary", h.Itinerary)
		api.GET("/sla/actions", h.SLAOverview)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/jobs", h.CreateJob)
		admin.PATCH("/jobs/:id/status", h.UpdateJobStatus)
		admin.POST("/jobs/:id/assign", h.Assign)
		admin.POST("/technicians", h.CreateTechnician)
		admin.POST("/technicians/:id/position", h.UpdatePosition)
		admin.POST("/sla/actions/:id/mitigate", h.MitigateSLA)
		admin.POST("/sla/sweep", h.SLASweep)
		admin.POST("/predict/duration", h.PredictDuration)
		admin.POST("/predict/noshow", h.PredictNoShow)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
