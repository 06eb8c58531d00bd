// Package ui exposes the analysis operations over a JSON HTTP API.
package ui

import (
	"github.com/gin-gonic/gin"

	"factorlens/adapters/excel"
	"factorlens/app"
	"factorlens/internal"
)

// Server is the gin HTTP surface over the analysis service.
type Server struct {
	router       *gin.Engine
	analysis     *app.AnalysisService
	reportWriter *excel.ReportWriter
	log          *internal.Logger
}

// NewServer creates the server and registers routes.
func NewServer(analysis *app.AnalysisService, reportWriter *excel.ReportWriter, ginMode string, logger *internal.Logger) *Server {
	gin.SetMode(ginMode)
	s := &Server{
		router:       gin.New(),
		analysis:     analysis,
		reportWriter: reportWriter,
		log:          logger.Component("http"),
	}
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	entities := api.Group("/entities/:id")
	{
		entities.POST("/discover", s.handleDiscover)
		entities.POST("/validate", s.handleValidate)
		entities.POST("/rollup", s.handleRollUp)
		entities.GET("/forecast", s.handleForecast)
		entities.GET("/patterns", s.handlePatterns)
		entities.GET("/insights", s.handleInsights)
		entities.GET("/report", s.handleReport)
		entities.GET("/report.xlsx", s.handleReportExcel)
	}
}

// Run blocks serving HTTP on the given port.
func (s *Server) Run(port string) error {
	s.log.Info("listening on :%s", port)
	return s.router.Run(":" + port)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
