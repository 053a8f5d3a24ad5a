package app

import (
	"unistudy_backend/docs"
	"unistudy_backend/internal/config"
	"unistudy_backend/internal/middleware"
	"unistudy_backend/internal/model"

	"unistudy_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 学生/通用 授权接口
		a.registerStudentRoutes(authGroup, c)

		// 教师相关接口
		a.registerInstructorRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/user/profile", c.user.UpdateProfile)

	// 课程目录（只读）
	rg.GET("/institutions", c.course.ListInstitutions)
	rg.GET("/courses", c.course.ListCourses)
	rg.GET("/courses/:id", c.course.GetCourse)
	rg.GET("/courses/:id/units", c.course.ListUnits)
	rg.GET("/units/:id/items", c.course.ListItems)

	// 学习会话
	rg.POST("/study/sessions", c.study.StartSession)
	rg.GET("/study/sessions", c.study.ListSessions)
	rg.GET("/study/sessions/:id", c.study.GetSession)
	rg.POST("/study/sessions/:id/responses", c.study.RecordResponse)
	rg.POST("/study/sessions/:id/finish", c.study.FinishSession)

	// 表现画像
	rg.GET("/study/performance", c.study.GetPerformance)

	// 生成配置
	rg.GET("/config/effective", c.config.GetEffective)
	rg.PUT("/config/preferences", c.config.SavePreference)
}

func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	instructor := rg.Group("/instructor")
	instructor.Use(middleware.RoleMiddleware(model.Instructor, model.Admin))
	{
		// 课程管理
		instructor.POST("/courses", c.course.CreateCourse)
		instructor.POST("/courses/:id/units", c.course.CreateUnit)
		instructor.POST("/units/:id/items", c.course.AddItem)

		// 课程/单元级生成配置
		instructor.PUT("/config/courses/:courseId", c.config.SaveCourseDefault)
		instructor.PUT("/config/courses/:courseId/units/:unitId", c.config.SaveUnitOverride)
		instructor.GET("/config/history", c.config.History)

		// 内容生成任务
		instructor.POST("/generation/jobs", c.generation.SubmitJob)
		instructor.GET("/generation/jobs/:handle", c.generation.GetJob)
		instructor.POST("/generation/jobs/:handle/items", c.generation.ImportItems)
		instructor.GET("/generation/units/:id/jobs", c.generation.ListUnitJobs)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(a.Config), middleware.ActivityMiddleware(repos.user))
	{
		// 1. 用户列表：允许管理员和老师访问
		admin.GET("/users", middleware.RoleMiddleware(model.Admin, model.Instructor), c.user.ListUsers)

		// 2. 其他所有接口：仅限管理员访问
		adminOnly := admin.Group("/")
		adminOnly.Use(middleware.RoleMiddleware(model.Admin))
		{
			adminOnly.PUT("/users/:id/disabled", c.user.SetDisabled)
			adminOnly.PUT("/config/institutions/:institutionId", c.config.SaveInstitutionDefault)
		}
	}
}
