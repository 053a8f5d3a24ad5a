package database

import (
	"fmt"
	"log"
	"time"

	"unistudy_backend/internal/config"
	"unistudy_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 建立 MySQL 连接。migrate 为 true 时同步表结构并写入基线数据；
// release 模式默认跳过迁移，由 -migrate/-migrate-only 显式触发。
func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
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
		Logger:         logger.Default.LogMode(logger.Info),
		TranslateError: true, // 冲突检测依赖 gorm.ErrDuplicatedKey
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}

		log.Println("Database migration completed")

		if err := SeedDefaults(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Migrate 同步全部表结构，测试用的 SQLite 库复用同一份列表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Institution{},
		&model.Course{},
		&model.CourseUnit{},
		&model.StudyItem{},
		&model.GenerationConfigRecord{},
		&model.ItemSchedule{},
		&model.LearningGap{},
		&model.StudySession{},
		&model.StudyResponse{},
		&model.GenerationJob{},
	)
}

// SeedDefaults 初始化基线数据：默认机构 + 系统默认配置快照。
// 系统默认配置同时硬编码在合并引擎里，这条记录用于审计与后台展示。
func SeedDefaults(db *gorm.DB) error {
	var instCount int64
	db.Model(&model.Institution{}).Count(&instCount)
	if instCount == 0 {
		inst := &model.Institution{
			Name: "默认机构",
			Code: "default",
		}
		if err := db.Create(inst).Error; err != nil {
			return err
		}
	}

	var cfgCount int64
	db.Model(&model.GenerationConfigRecord{}).
		Where("source = ?", model.SourceSystemDefault).
		Count(&cfgCount)
	if cfgCount == 0 {
		base := model.DefaultGenerationConfig()
		settings := model.GenerationSettings{
			CuecardsCount:      &base.CuecardsCount,
			QuizzesCount:       &base.QuizzesCount,
			NotesCount:         &base.NotesCount,
			ExamExercisesCount: &base.ExamExercisesCount,
			Difficulty:         &base.Difficulty,
			Focus:              &base.Focus,
			QuizQuestionType:   &base.QuizQuestionType,
			NotesStyle:         &base.NotesStyle,
			ExamDurationMin:    &base.ExamDurationMin,
		}
		record := &model.GenerationConfigRecord{
			Source:    model.SourceSystemDefault,
			ScopeKey:  model.ConfigScope{}.Key(),
			IsActive:  true,
			AppliedAt: time.Now(),
		}
		activeKey := fmt.Sprintf("%s|%s", record.Source, record.ScopeKey)
		record.ActiveKey = &activeKey
		if err := record.SetSettings(settings); err != nil {
			return err
		}
		if err := db.Create(record).Error; err != nil {
			return err
		}
	}

	return nil
}
