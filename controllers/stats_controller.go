package controllers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/captcha/models"
	"github.com/cppla/captcha/utils"
)

// StatsController reports captcha issuance counts.
type StatsController struct {
	db       *gorm.DB
	registry *utils.SessionRegistry
}

// NewStatsController creates a StatsController. db may be nil.
func NewStatsController(db *gorm.DB, registry *utils.SessionRegistry) *StatsController {
	return &StatsController{db: db, registry: registry}
}

type dailyCount struct {
	Date  string `json:"date"`
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// GetStats returns live sessions and per-day event counts for the last `days` days (default 7).
func (s *StatsController) GetStats(ctx *gin.Context) {
	days, err := strconv.Atoi(ctx.DefaultQuery("days", "7"))
	if err != nil || days <= 0 || days > 90 {
		days = 7
	}

	out := gin.H{
		"live_sessions": s.registry.Len(),
		"recording":     s.db != nil,
		"daily":         []dailyCount{},
	}
	if s.db == nil {
		utils.Success(ctx, out)
		return
	}

	since := time.Now().In(time.Local).AddDate(0, 0, -(days - 1)).Format("2006-01-02")
	var rows []models.IssueStat
	if err := s.db.Where("date >= ?", since).Order("date ASC, kind ASC").Find(&rows).Error; err != nil {
		// Fall back to empty counts instead of failing the whole endpoint
		utils.Sugar.Warnf("query issue stats: %v", err)
		utils.Success(ctx, out)
		return
	}
	daily := make([]dailyCount, 0, len(rows))
	for _, r := range rows {
		daily = append(daily, dailyCount{Date: r.Date.Format("2006-01-02"), Kind: r.Kind, Count: r.Count})
	}
	out["daily"] = daily
	utils.Success(ctx, out)
}
