package main

import (
	"context"

	"github.com/cppla/captcha/captcha"
	"github.com/cppla/captcha/config"
	"github.com/cppla/captcha/models"
	"github.com/cppla/captcha/routes"
	"github.com/cppla/captcha/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	opts, err := cfg.CaptchaOptions()
	if err != nil {
		utils.Sugar.Fatalf("captcha options: %v", err)
	}
	// Fail fast on configuration the engine would reject for every session.
	if _, err := captcha.NewSession(opts); err != nil {
		utils.Sugar.Fatalf("captcha configuration rejected: %v", err)
	}

	db, err := config.InitDatabase(&models.IssueStat{})
	if err != nil {
		utils.Sugar.Fatalf("database: %v", err)
	}

	rc := utils.GetRedis()
	store := utils.NewAnswerStore(rc, cfg.CaptchaHashCost)
	registry := utils.NewSessionRegistry(opts, store, cfg.AnswerTTL(), cfg.SessionTTL())

	r := routes.SetupRouter(cfg, registry, db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	closeBackends := func(context.Context) {
		if rc != nil {
			if err := rc.Close(); err != nil {
				utils.Sugar.Warnf("close redis: %v", err)
			}
		}
		if db != nil {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	}
	if err := utils.GraceServer(":"+cfg.AppPort, r, closeBackends); err != nil {
		utils.Sugar.Fatalf("server error: %v", err)
	}
}
