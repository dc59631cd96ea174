package main

import (
	"flag"
	"fyp_backend/internal/app"
	"fyp_backend/internal/config"
	"fyp_backend/pkg/configwatcher"
	"log"
)

// @title FYP Platform API
// @version 1.0
// @description 毕业设计项目管理平台后端 API，提供交付物评审与发布流程和在线通知推送。
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migration and exit")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)

	if cfg.MigrateOnly {
		log.Println("Migration completed, exiting")
		return
	}

	// 配置文件热加载
	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		reloaded, ok := newCfg.(*config.Config)
		if !ok {
			log.Println("Unexpected config type on reload")
			return
		}
		reloaded.MigrateOnly = cfg.MigrateOnly
		application.ReloadConfig(reloaded)
	})

	application.Run()
}
