package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wooxi/openclaw-dashboard/internal/configstore"
	"github.com/wooxi/openclaw-dashboard/internal/gateway"
)

func (s *Server) handleHealth(c *gin.Context) {
	snapshot, err := s.cfg.Gatherer.GatherLight(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleStatus(c *gin.Context) {
	detailed := c.Query("detailed") != "" && c.Query("detailed") != "0"

	snapshot, err := s.cfg.Gatherer.Gather(c.Request.Context(), detailed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleSessions(c *gin.Context) {
	sessions, err := s.cfg.Gateway.Sessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleCron(c *gin.Context) {
	jobs, err := s.cfg.Gateway.CronJobs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleControl(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	result, err := s.cfg.Gateway.Control(c.Request.Context(), req.Action)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidAction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.cfg.Database != nil {
		if err := s.cfg.Database.LogControlAction(req.Action, result.Success, c.ClientIP()); err != nil {
			s.logger.Error("failed to record control action", "error", err)
		}
	}

	s.logger.Info("control action issued",
		"action", req.Action,
		"success", result.Success,
		"remote", c.ClientIP(),
	)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleConfigGet(c *gin.Context) {
	doc, err := s.cfg.Store.Read()
	if err != nil {
		s.writeStoreError(c, err)
		return
	}
	raw, err := s.cfg.Store.Raw()
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"config": configstore.MaskToken(doc),
		"raw":    string(raw),
	})
}

func (s *Server) handleConfigPut(c *gin.Context) {
	var doc configstore.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	backupID, err := s.cfg.Store.Write(doc)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup": backupID})
}

func (s *Server) handleBackups(c *gin.Context) {
	backups, err := s.cfg.Store.ListBackups()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": backups})
}

func (s *Server) handleRestore(c *gin.Context) {
	id := c.Param("id")
	if err := s.cfg.Store.RestoreFrom(id); err != nil {
		s.writeStoreError(c, err)
		return
	}

	s.logger.Info("config restored from backup", "backup", id, "remote", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"restored": id})
}

func (s *Server) handleEvents(c *gin.Context) {
	if s.cfg.Database == nil {
		c.JSON(http.StatusOK, gin.H{"recoveries": []any{}, "controls": []any{}})
		return
	}

	recoveries, err := s.cfg.Database.RecentRecoveries(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	controls, err := s.cfg.Database.RecentControlActions(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recoveries": recoveries, "controls": controls})
}

// writeStoreError maps the configstore error taxonomy onto HTTP status
// codes, keeping the diagnostic detail for the caller.
func (s *Server) writeStoreError(c *gin.Context, err error) {
	var validationErr *configstore.ValidationError
	var parseErr *configstore.ParseError
	var verifyErr *configstore.VerificationError

	switch {
	case errors.Is(err, configstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"errors": validationErr.Rules,
		})
	case errors.As(err, &parseErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": parseErr.Error()})
	case errors.As(err, &verifyErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": verifyErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
