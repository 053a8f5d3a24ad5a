// 演示数据导入脚本
//
// 按 scripts/demo_data.yaml 写入机构、教师账号、课程、单元和练习项，
// 用于本地联调或演示环境的首次初始化。重复执行按机构编码幂等。
//
// 用法: go run scripts/seed_demo.go

package main

import (
	"log"
	"os"

	"unistudy_backend/internal/config"
	"unistudy_backend/internal/model"
	"unistudy_backend/pkg/database"
	"unistudy_backend/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type demoData struct {
	Institution struct {
		Name string `yaml:"name"`
		Code string `yaml:"code"`
	} `yaml:"institution"`
	Instructor struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"instructor"`
	Course struct {
		Title       string `yaml:"title"`
		Code        string `yaml:"code"`
		Description string `yaml:"description"`
	} `yaml:"course"`
	Units []demoUnit `yaml:"units"`
}

type demoUnit struct {
	Title string     `yaml:"title"`
	Items []demoItem `yaml:"items"`
}

type demoItem struct {
	Type           string   `yaml:"type"`
	Front          string   `yaml:"front"`
	Back           string   `yaml:"back"`
	Question       string   `yaml:"question"`
	Answer         string   `yaml:"answer"`
	Options        []string `yaml:"options"`
	Difficulty     float64  `yaml:"difficulty"`
	DifficultyTier string   `yaml:"difficulty_tier"`
}

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	raw, err := os.ReadFile("scripts/demo_data.yaml")
	if err != nil {
		log.Fatalf("无法读取演示数据: %v", err)
	}

	var demo demoData
	if err := yaml.Unmarshal(raw, &demo); err != nil {
		log.Fatalf("解析演示数据失败: %v", err)
	}

	log.Println("开始导入演示数据...")
	if err := seed(db, &demo); err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	log.Println("完成！")
}

func seed(db *gorm.DB, demo *demoData) error {
	// 机构按编码幂等
	inst := model.Institution{Name: demo.Institution.Name, Code: demo.Institution.Code}
	if err := db.Where("code = ?", inst.Code).FirstOrCreate(&inst).Error; err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demo.Instructor.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	instructor := model.User{
		Name:          demo.Instructor.Name,
		Email:         demo.Instructor.Email,
		Password:      string(hash),
		Role:          model.Instructor,
		InstitutionID: &inst.ID,
	}
	if err := db.Where("email = ?", instructor.Email).FirstOrCreate(&instructor).Error; err != nil {
		return err
	}

	course := model.Course{
		Title:         demo.Course.Title,
		Code:          demo.Course.Code,
		Description:   demo.Course.Description,
		InstitutionID: &inst.ID,
		CreatedBy:     instructor.ID,
	}
	if err := db.Where("code = ? AND institution_id = ?", course.Code, inst.ID).FirstOrCreate(&course).Error; err != nil {
		return err
	}

	for pos, u := range demo.Units {
		unit := model.CourseUnit{
			CourseID: course.ID,
			Title:    u.Title,
			Position: pos + 1,
		}
		if err := db.Where("course_id = ? AND title = ?", course.ID, u.Title).FirstOrCreate(&unit).Error; err != nil {
			return err
		}

		var existing int64
		db.Model(&model.StudyItem{}).Where("unit_id = ?", unit.ID).Count(&existing)
		if existing > 0 {
			log.Printf("单元 %q 已有 %d 条练习项，跳过", u.Title, existing)
			continue
		}

		for _, it := range u.Items {
			item := model.StudyItem{
				CourseID:       course.ID,
				UnitID:         unit.ID,
				ContentType:    model.ContentType(it.Type),
				Front:          it.Front,
				Back:           it.Back,
				Question:       it.Question,
				Answer:         it.Answer,
				Difficulty:     it.Difficulty,
				DifficultyTier: model.DifficultyTier(it.DifficultyTier),
				CreatedBy:      instructor.ID,
			}
			if len(it.Options) > 0 {
				if err := item.SetOptions(it.Options); err != nil {
					return err
				}
			}
			if err := db.Create(&item).Error; err != nil {
				return err
			}
		}
		log.Printf("单元 %q 导入 %d 条练习项", u.Title, len(u.Items))
	}

	return nil
}
