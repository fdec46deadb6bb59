package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/automatix-sh/automatix/internal/db"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, gormDB *gorm.DB) {
	router.GET("/api/runs", handleRuns(gormDB))
	router.GET("/api/runs/:id", handleRunDetail(gormDB))
	router.GET("/api/runs/:id/logs", handleRunLogs(gormDB))
	router.GET("/api/running", handleRunning(gormDB))
	router.GET("/api/events", handleSSE(gormDB))
}

func handleRuns(gormDB *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		runs, err := db.RecentRuns(gormDB, db.RunFilter{
			Script: c.Query("script"),
			Status: c.Query("status"),
			Limit:  limit,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, runs)
	}
}

func handleRunDetail(gormDB *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := db.GetRun(gormDB, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

func handleRunLogs(gormDB *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		logs, err := db.RunLogs(gormDB, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, logs)
	}
}

func handleRunning(gormDB *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := db.RunningRuns(gormDB)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, runs)
	}
}
