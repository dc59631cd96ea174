package database

import (
	"fmt"
	"fyp_backend/internal/config"
	"fyp_backend/internal/model"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Deadline{},
		&model.DeliverableRecord{},
		&model.Notification{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认截止时间表（首次启动时写入，后续由管理员维护）
	var count int64
	db.Model(&model.Deadline{}).Count(&count)
	if count == 0 {
		now := time.Now()
		db.Create(&model.Deadline{
			Name:             fmt.Sprintf("%d-%d", now.Year(), now.Year()+1),
			OutlineDocument:  time.Date(now.Year(), 12, 1, 23, 59, 0, 0, time.Local),
			ExtendedAbstract: time.Date(now.Year()+1, 3, 1, 23, 59, 0, 0, time.Local),
			FinalReport:      time.Date(now.Year()+1, 6, 1, 23, 59, 0, 0, time.Local),
		})
	}

	return db, nil
}
