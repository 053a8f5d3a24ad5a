package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrAccountDisabled    = errors.New("账号已被停用")
	ErrCourseNotFound     = errors.New("course not found")
	ErrUnitNotFound       = errors.New("unit not found")
	ErrItemNotFound       = errors.New("item not found")

	// 配置存取
	ErrConfigNotFound = errors.New("no active configuration for source/scope")
	ErrConfigConflict = errors.New("concurrent configuration write conflict")

	// 会话流程
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotActive  = errors.New("session is not active")
	ErrSessionInProgress = errors.New("会话创建中，请勿重复发起")

	// 分析与排程：调用方按约定降级，不向外冒泡
	ErrAnalysisFailure      = errors.New("performance aggregation failed")
	ErrScheduleUpdateFailed = errors.New("schedule update failed")

	ErrJobNotFound = errors.New("generation job not found")
)
