package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/captcha/models"
	"github.com/cppla/captcha/utils"
)

// IssueEventKey is the gin context key handlers set to the kind of captcha
// event a request produced.
const IssueEventKey = "captcha_event"

// Issue event kinds.
const (
	EventCreated   = "created"
	EventRefreshed = "refreshed"
	EventAssigned  = "assigned"
	EventVerified  = "verified"
	EventFailed    = "failed"
)

// IssueRecorder counts captcha events per day and kind. It does nothing when db is nil.
func IssueRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if db == nil {
			return
		}
		kind := c.GetString(IssueEventKey)
		if kind == "" {
			return
		}

		now := time.Now().In(time.Local)
		localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		// Atomic upsert to avoid duplicate key errors under concurrency
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "kind"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.IssueStat{Date: localMidnight, Kind: kind, Count: 1}).Error
		if err != nil {
			utils.Sugar.Warnf("record captcha event kind=%s err=%v", kind, err)
		}
	}
}
