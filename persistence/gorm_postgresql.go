// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/tiltmaze/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormMatchRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) SaveMatchResult(ctx context.Context, result models.MatchResult) error {
	record := models.NewGormMatchRecord(result)
	return p.db.WithContext(ctx).Create(&record).Error
}

func (p *GormPostgreSQL) RecentMatches(ctx context.Context, limit int) ([]models.MatchResult, error) {
	var records []models.GormMatchRecord
	err := p.db.WithContext(ctx).
		Order("finished_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.MatchResult, 0, len(records))
	for _, r := range records {
		out = append(out, r.Result())
	}
	return out, nil
}

func (p *GormPostgreSQL) PlayerStats(ctx context.Context, username string) (models.PlayerStats, error) {
	stats := models.PlayerStats{Username: username}
	member, err := json.Marshal([]string{username})
	if err != nil {
		return stats, err
	}

	// players is a jsonb array of usernames
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var games, wins int64
		if err := tx.Model(&models.GormMatchRecord{}).
			Where("players @> ?::jsonb", string(member)).
			Count(&games).Error; err != nil {
			return err
		}
		if games == 0 {
			return ErrRecordNotFound
		}
		if err := tx.Model(&models.GormMatchRecord{}).
			Where("winner_name = ?", username).
			Count(&wins).Error; err != nil {
			return err
		}
		stats.Games = int(games)
		stats.Wins = int(wins)
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrRecordNotFound
	}
	return stats, err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
