package service

import (
	"errors"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"
	"unistudy_backend/internal/util"
	"unistudy_backend/pkg/logger"
	"unistudy_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// ConfigService 配置读写与合并的编排层。
// 写路径带一次冲突重试；读路径按来源收集记录后交给合并引擎。
type ConfigService struct {
	ConfigRepo *repository.GenerationConfigRepository
	Merger     *MergeEngine
}

func NewConfigService(configRepo *repository.GenerationConfigRepository, merger *MergeEngine) *ConfigService {
	return &ConfigService{ConfigRepo: configRepo, Merger: merger}
}

// EffectiveConfig 计算某个完整身份作用域下的有效配置：
// 逐来源取激活记录（缺失即跳过），合并引擎按优先级覆盖出最终配置。
// 只有硬性存储错误会向上传播；单个来源无记录属正常情况。
func (s *ConfigService) EffectiveConfig(scope model.ConfigScope) (model.GenerationConfig, []model.GenerationConfigRecord, error) {
	records, err := s.collectRecords(scope)
	if err != nil {
		return model.GenerationConfig{}, nil, err
	}
	return s.Merger.Merge(records), records, nil
}

// collectRecords 按身份推导每个来源各自的作用域并逐一取激活记录。
// user_preference 支持课程级与全局两层：先找课程级，缺失再落到全局。
func (s *ConfigService) collectRecords(scope model.ConfigScope) ([]model.GenerationConfigRecord, error) {
	records := make([]model.GenerationConfigRecord, 0, 6)

	appendActive := func(source model.ConfigSource, sc model.ConfigScope) (bool, error) {
		record, err := s.ConfigRepo.GetActive(source, sc)
		if err != nil {
			if errors.Is(err, util.ErrConfigNotFound) {
				return false, nil
			}
			return false, err
		}
		records = append(records, *record)
		return true, nil
	}

	if _, err := appendActive(model.SourceSystemDefault, model.ConfigScope{}); err != nil {
		return nil, err
	}
	if scope.InstitutionID != nil {
		if _, err := appendActive(model.SourceInstitutionDefault, model.ConfigScope{InstitutionID: scope.InstitutionID}); err != nil {
			return nil, err
		}
	}
	if scope.CourseID != nil {
		if _, err := appendActive(model.SourceCourseDefault, model.ConfigScope{CourseID: scope.CourseID}); err != nil {
			return nil, err
		}
	}
	if scope.UserID != nil {
		found := false
		var err error
		if scope.CourseID != nil {
			found, err = appendActive(model.SourceUserPreference, model.ConfigScope{UserID: scope.UserID, CourseID: scope.CourseID})
			if err != nil {
				return nil, err
			}
		}
		if !found {
			if _, err = appendActive(model.SourceUserPreference, model.ConfigScope{UserID: scope.UserID}); err != nil {
				return nil, err
			}
		}
	}
	if scope.CourseID != nil && scope.UnitID != nil {
		if _, err := appendActive(model.SourceUnitOverride, model.ConfigScope{CourseID: scope.CourseID, UnitID: scope.UnitID}); err != nil {
			return nil, err
		}
	}
	if scope.UserID != nil && scope.CourseID != nil && scope.UnitID != nil {
		adaptiveScope := model.ConfigScope{UserID: scope.UserID, CourseID: scope.CourseID, UnitID: scope.UnitID}
		if _, err := appendActive(model.SourceAdaptiveAlgorithm, adaptiveScope); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// SaveUserPreference 保存用户偏好。courseID 非空时为课程级偏好，否则全局
func (s *ConfigService) SaveUserPreference(userID uint, courseID *uint, settings model.GenerationSettings, actor uint) (*model.GenerationConfigRecord, error) {
	scope := model.ConfigScope{UserID: &userID, CourseID: courseID}
	return s.saveWithRetry(model.SourceUserPreference, scope, settings, nil, actor)
}

// SaveCourseDefault 保存课程默认配置（教师操作）
func (s *ConfigService) SaveCourseDefault(courseID uint, settings model.GenerationSettings, actor uint) (*model.GenerationConfigRecord, error) {
	scope := model.ConfigScope{CourseID: &courseID}
	return s.saveWithRetry(model.SourceCourseDefault, scope, settings, nil, actor)
}

// SaveUnitOverride 保存单元级覆盖（教师操作）
func (s *ConfigService) SaveUnitOverride(courseID, unitID uint, settings model.GenerationSettings, actor uint) (*model.GenerationConfigRecord, error) {
	scope := model.ConfigScope{CourseID: &courseID, UnitID: &unitID}
	return s.saveWithRetry(model.SourceUnitOverride, scope, settings, nil, actor)
}

// SaveInstitutionDefault 保存机构默认配置（管理员操作）
func (s *ConfigService) SaveInstitutionDefault(institutionID uint, settings model.GenerationSettings, actor uint) (*model.GenerationConfigRecord, error) {
	scope := model.ConfigScope{InstitutionID: &institutionID}
	return s.saveWithRetry(model.SourceInstitutionDefault, scope, settings, nil, actor)
}

// SaveAdaptiveSnapshot 落一条自适应算法快照（只增日志，含调整原因）
func (s *ConfigService) SaveAdaptiveSnapshot(userID, courseID, unitID uint, adapted model.AdaptiveGenerationConfig) (*model.GenerationConfigRecord, error) {
	scope := model.ConfigScope{UserID: &userID, CourseID: &courseID, UnitID: &unitID}
	return s.saveWithRetry(model.SourceAdaptiveAlgorithm, scope, adapted.GenerationConfig.AsSettings(), adapted.AdaptationReasons, userID)
}

// History 某来源某作用域的历史快照
func (s *ConfigService) History(source model.ConfigSource, scope model.ConfigScope, limit int) ([]model.GenerationConfigRecord, error) {
	return s.ConfigRepo.History(source, scope, limit)
}

// saveWithRetry 写入激活记录，冲突时重试一次，再冲突才向调用方报错。
// 每次尝试都重建记录，避免上一次失败写入残留的字段。
func (s *ConfigService) saveWithRetry(source model.ConfigSource, scope model.ConfigScope, settings model.GenerationSettings, reasons []string, actor uint) (*model.GenerationConfigRecord, error) {
	build := func() (*model.GenerationConfigRecord, error) {
		record := &model.GenerationConfigRecord{
			Source:        source,
			InstitutionID: scope.InstitutionID,
			CourseID:      scope.CourseID,
			UnitID:        scope.UnitID,
			UserID:        scope.UserID,
			ScopeKey:      scope.Key(),
			CreatedBy:     actor,
		}
		if err := record.SetSettings(settings); err != nil {
			return nil, err
		}
		if len(reasons) > 0 {
			if err := record.SetReasons(reasons); err != nil {
				return nil, err
			}
		}
		return record, nil
	}

	record, err := build()
	if err != nil {
		return nil, err
	}
	if err = s.ConfigRepo.SaveActive(record); err == nil {
		return record, nil
	}
	if !errors.Is(err, util.ErrConfigConflict) {
		return nil, err
	}

	monitoring.ConfigConflicts.Inc()
	logger.Log.Warn("配置保存冲突，重试一次",
		zap.String("source", string(source)),
		zap.String("scope", scope.Key()))

	record, buildErr := build()
	if buildErr != nil {
		return nil, buildErr
	}
	if err = s.ConfigRepo.SaveActive(record); err != nil {
		if errors.Is(err, util.ErrConfigConflict) {
			monitoring.ConfigConflicts.Inc()
		}
		return nil, err
	}
	return record, nil
}
