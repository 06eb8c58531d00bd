package ui

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"factorlens/domain/core"
	apperrors "factorlens/internal/errors"
	"factorlens/internal/report"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDiscover(c *gin.Context) {
	entityID, ok := s.entityID(c)
	if !ok {
		return
	}
	result, err := s.analysis.Discover(c.Request.Context(), entityID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entity_id": entityID,
		"created":   result.Created,
		"updated":   result.Updated,
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	entityID, ok := s.entityID(c)
	if !ok {
		return
	}
	result, err := s.analysis.Validate(c.Request.Context(), entityID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entity_id":   entityID,
		"confirmed":   result.Confirmed,
		"refuted":     result.Refuted,
		"skipped":     result.Skipped,
		"deactivated": result.Deactivated,
	})
}

func (s *Server) handleRollUp(c *gin.Context) {
	entityID, ok := s.entityID(c)
	if !ok {
		return
	}
	if err := s.analysis.RollUp(c.Request.Context(), entityID); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity_id": entityID, "status": "rolled_up"})
}

func (s *Server) handleForecast(c *gin.Context) {
	entityID, ok := s.entityID(c)
	if !ok {
		return
	}
	targetDate := core.Now().AddDate(0, 0, 1)
	if raw := c.Query("date"); raw != "" {
		parsed, err := core.ParseDateKey(raw)
		if err != nil {
			s.renderError(c, apperrors.InvalidInput(fmt.Sprintf("date must be %s", core.DateLayout)))
			return
		}
		targetDate = parsed
	}
	forecast, err := s.analysis.Forecast(c.Request.Context(), entityID, targetDate)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, forecast)
}

func (s *Server) handlePatterns(c *gin.Context) {
	entityID, ok := s.entityID(c)
	if !ok {
		return
	}
	patterns, err := s.analysis.Patterns(c.Request.Context(), entityID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity_id": entityID, "patterns": patterns})
}

func (s *Server) handleInsights(c *gin.Context) {
	entityID, ok := s.entityID(c)
	if !ok {
		return
	}
	set, err := s.analysis.InternalPatterns(c.Request.Context(), entityID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// handleReport renders markdown by default, HTML with ?format=html.
func (s *Server) handleReport(c *gin.Context) {
	entityID, ok := s.entityID(c)
	if !ok {
		return
	}
	in, err := s.analysis.Report(c.Request.Context(), entityID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(in))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Markdown(in)))
}

func (s *Server) handleReportExcel(c *gin.Context) {
	entityID, ok := s.entityID(c)
	if !ok {
		return
	}
	in, err := s.analysis.Report(c.Request.Context(), entityID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := s.reportWriter.Write(&buf, in); err != nil {
		s.renderError(c, err)
		return
	}
	filename := fmt.Sprintf("report-%s-%s.xlsx", entityID, time.Now().Format(core.DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *Server) entityID(c *gin.Context) (core.EntityID, bool) {
	entityID, err := core.ParseEntityID(c.Param("id"))
	if err != nil {
		s.renderError(c, apperrors.InvalidInput("entity id is required"))
		return "", false
	}
	return entityID, true
}

// renderError maps error codes onto HTTP statuses. Unknown errors stay
// opaque 500s; the code taxonomy is the contract.
func (s *Server) renderError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.CodeInsufficientData, apperrors.CodeDegenerateInput:
		status = http.StatusUnprocessableEntity
	case apperrors.CodeUpstreamUnavailable:
		status = http.StatusBadGateway
	case apperrors.CodeStaleVersionConflict:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": err.Error()}})
}
