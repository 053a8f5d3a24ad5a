package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unistudy_backend/internal/config"
	"unistudy_backend/internal/controller"
	"unistudy_backend/internal/repository"
	"unistudy_backend/internal/service"
	"unistudy_backend/pkg/database"
	"unistudy_backend/pkg/logger"
	"unistudy_backend/pkg/monitoring"
	"unistudy_backend/pkg/security"
	"unistudy_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Router          *gin.Engine
	Config          *config.Config
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	institution *repository.InstitutionRepository
	course      *repository.CourseRepository
	item        *repository.StudyItemRepository
	config      *repository.GenerationConfigRepository
	schedule    *repository.ScheduleRepository
	gap         *repository.GapRepository
	response    *repository.ResponseRepository
	session     *repository.SessionRepository
	job         *repository.GenerationJobRepository
}

type services struct {
	auth        *service.AuthService
	user        *service.UserService
	course      *service.CourseService
	config      *service.ConfigService
	performance *service.PerformanceService
	adaptive    *service.AdaptiveService
	selector    *service.SelectorService
	scheduler   *service.SchedulerService
	study       *service.StudyService
	generation  *service.GenerationService
}

type controllers struct {
	auth       *controller.AuthController
	user       *controller.UserController
	course     *controller.CourseController
	config     *controller.ConfigController
	study      *controller.StudyController
	generation *controller.GenerationController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		institution: repository.NewInstitutionRepository(db),
		course:      repository.NewCourseRepository(db),
		item:        repository.NewStudyItemRepository(db),
		config:      repository.NewGenerationConfigRepository(db),
		schedule:    repository.NewScheduleRepository(db),
		gap:         repository.NewGapRepository(db),
		response:    repository.NewResponseRepository(db),
		session:     repository.NewSessionRepository(db),
		job:         repository.NewGenerationJobRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	configService := service.NewConfigService(repos.config, service.NewMergeEngine(service.DefaultSourcePriorities()))
	performanceService := service.NewPerformanceService(repos.response, rdb,
		time.Duration(cfg.Study.ProfileCacheTTLSeconds)*time.Second)
	adaptiveService := service.NewAdaptiveService()
	selectorService := service.NewSelectorService(time.Now().UnixNano())
	schedulerService := service.NewSchedulerService(repos.schedule)

	// 学习会话服务依赖面最宽，直接以字面量组装
	studyService := &service.StudyService{
		SessionRepo:  repos.session,
		ResponseRepo: repos.response,
		ItemRepo:     repos.item,
		ScheduleRepo: repos.schedule,
		GapRepo:      repos.gap,
		UserRepo:     repos.user,
		CourseRepo:   repos.course,
		Config:       configService,
		Performance:  performanceService,
		Adaptive:     adaptiveService,
		Selector:     selectorService,
		Scheduler:    schedulerService,
		Redis:        rdb,
		LockTTL:      time.Duration(cfg.Study.SessionLockTTLSeconds) * time.Second,
	}

	return &services{
		auth:        service.NewAuthService(repos.user, cfg),
		user:        service.NewUserService(repos.user),
		course:      service.NewCourseService(repos.course, repos.institution, repos.item),
		config:      configService,
		performance: performanceService,
		adaptive:    adaptiveService,
		selector:    selectorService,
		scheduler:   schedulerService,
		study:       studyService,
		generation:  service.NewGenerationService(repos.job, repos.item, cfg.Generation),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, s.user),
		user:       controller.NewUserController(s.user),
		course:     controller.NewCourseController(s.course),
		config:     controller.NewConfigController(s.config, s.study),
		study:      controller.NewStudyController(s.study),
		generation: controller.NewGenerationController(s.generation, s.study),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// RegisterConfigCallback 注册配置热更新回调，由 ApplyConfig 依次触发
func (a *App) RegisterConfigCallback(cb func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, cb)
}

// ApplyConfig 应用新配置，配置文件监听器检测到变更后调用
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
	logger.Log.Info("配置已热更新")
}

func (a *App) applyStudyConfig(cfg *config.Config) {
	a.services.study.LockTTL = time.Duration(cfg.Study.SessionLockTTLSeconds) * time.Second
	a.services.performance.CacheTTL = time.Duration(cfg.Study.ProfileCacheTTLSeconds) * time.Second
}

func (a *App) startBackgroundTasks(s *services) {
	// 定时把超时未完成的学习会话标记为 abandoned
	go func() {
		ticker := time.NewTicker(time.Hour)
		for range ticker.C {
			staleAfter := time.Duration(a.Config.Study.StaleSessionHours) * time.Hour
			count, err := s.study.MarkStaleSessions(staleAfter)
			if err != nil {
				logger.Log.Error("stale session sweep error", zap.Error(err))
				continue
			}
			if count > 0 {
				logger.Log.Info("stale sessions abandoned", zap.Int64("count", count))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	doMigrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, doMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	if rdb == nil {
		logger.Log.Warn("Redis disabled, session locks and profile cache degrade to direct reads")
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("unistudy-backend", cfg.Tracing.CollectorEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	app.RegisterConfigCallback(app.applyStudyConfig)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	// 追踪器在请求全部结束后再关，避免丢 span
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Sync()
	log.Println("Server exiting")
}
