package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/database"
	"github.com/sahilchouksey/kpi-tracker-api/handlers"
	assignment_handlers "github.com/sahilchouksey/kpi-tracker-api/handlers/assignment"
	auth_handlers "github.com/sahilchouksey/kpi-tracker-api/handlers/auth"
	department_handlers "github.com/sahilchouksey/kpi-tracker-api/handlers/department"
	departmentinfo_handlers "github.com/sahilchouksey/kpi-tracker-api/handlers/departmentinfo"
	kpi_handlers "github.com/sahilchouksey/kpi-tracker-api/handlers/kpi"
	pillar_handlers "github.com/sahilchouksey/kpi-tracker-api/handlers/pillar"
	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/services"
	"github.com/sahilchouksey/kpi-tracker-api/services/storage"
	"github.com/sahilchouksey/kpi-tracker-api/utils/auth"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"github.com/sahilchouksey/kpi-tracker-api/utils/middleware"
)

// otpRequestsPerWindow caps login code mails per IP every ten minutes.
const otpRequestsPerWindow = 5

// Dependencies are the collaborators built by the app and shared by the routes.
// Optional ones may be nil: Google sign-in, object storage and the Redis
// attempt store are disabled when absent.
type Dependencies struct {
	Store        database.Storage
	JWT          *auth.JWTManager
	Google       auth.GoogleVerifier
	Mailer       services.OTPMailer
	Objects      storage.ObjectStore
	AttemptStore middleware.AttemptStore
	Auth         services.AuthConfig
	Security     middleware.SecurityConfig
	Log          *logger.Logger
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	db := deps.Store.DB()
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	// Brute force protection is off without Redis
	var bruteForceProtection *middleware.BruteForceProtection
	if deps.AttemptStore != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.AttemptStore)
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.JWT, db)

	authService := services.NewAuthService(db, deps.JWT, deps.Google, deps.Mailer, deps.Auth, log)
	pillarService := services.NewPillarService(db, log)
	kpiService := services.NewKPIService(db, log)
	departmentInfoService := services.NewDepartmentInfoService(db, log)
	assignmentService := services.NewAssignmentService(db, log)
	departmentService := services.NewDepartmentService(db, log)

	authHandler := auth_handlers.NewAuthHandler(authService, bruteForceProtection)
	pillarHandler := pillar_handlers.NewPillarHandler(pillarService)
	kpiHandler := kpi_handlers.NewKPIHandler(kpiService)
	departmentInfoHandler := departmentinfo_handlers.NewDepartmentInfoHandler(departmentInfoService)
	assignmentHandler := assignment_handlers.NewAssignmentHandler(assignmentService, deps.Objects)
	departmentHandler := department_handlers.NewDepartmentHandler(departmentService)

	if deps.Security.RateLimitWindow == 0 {
		deps.Security.RateLimitWindow = time.Minute
	}
	middleware.SetupSecurity(app, deps.Security)

	// Health check endpoint (public)
	var redisPinger handlers.Pinger
	if p, ok := deps.AttemptStore.(handlers.Pinger); ok {
		redisPinger = p
	}
	app.Get("/ping", handlers.HandleCheckHealth(deps.Store, redisPinger))

	// Auth routes
	authGroup := app.Group("/api/auth")
	authGroup.Post("/login", bruteForceProtection.CheckLock(), authHandler.Login)
	authGroup.Post("/google", bruteForceProtection.CheckLock(), authHandler.Google)
	authGroup.Post("/otp/request", middleware.RateLimit(otpRequestsPerWindow, 10*time.Minute), authHandler.RequestOTP)
	authGroup.Post("/otp/verify", bruteForceProtection.CheckLock(), authHandler.VerifyOTP)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Get("/me", authMiddleware.Required(), authHandler.Me)

	// Departments
	departments := app.Group("/departments", authMiddleware.Required())
	departments.Get("/", departmentHandler.ListDepartments)
	departments.Post("/", authMiddleware.RequireRole(model.RoleQAC), departmentHandler.CreateDepartment)

	// ==================== QAC: templates and review ====================

	qc := app.Group("/qc", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleQAC))

	pillars := qc.Group("/pillar")
	pillars.Post("/", pillarHandler.CreatePillar)
	pillars.Get("/", pillarHandler.ListPillars)
	pillars.Get("/weight", pillarHandler.GetWeightStatus) // before /:id
	pillars.Get("/:id", pillarHandler.GetPillar)
	pillars.Patch("/:id", pillarHandler.UpdatePillar)
	pillars.Delete("/:id", pillarHandler.DeletePillar)
	pillars.Post("/:id/assign", assignmentHandler.AssignPillar)
	pillars.Get("/:id/assignments", assignmentHandler.ListPillarAssignments)
	pillars.Delete("/:id/assign/:departmentId", assignmentHandler.UnassignPillar)

	qc.Patch("/review/:departmentKpiId", assignmentHandler.Review)

	kpis := qc.Group("/:pillarId/kpi")
	kpis.Post("/", kpiHandler.CreateKPI)
	kpis.Get("/", kpiHandler.ListKPIs)
	kpis.Get("/weight", kpiHandler.GetWeightStatus) // before /:kpiId
	kpis.Get("/:kpiId", kpiHandler.GetKPI)
	kpis.Patch("/:kpiId", kpiHandler.UpdateKPI)
	kpis.Delete("/:kpiId", kpiHandler.DeleteKPI)

	// ==================== HOD: department profile ====================

	hod := app.Group("/hod/department-info", authMiddleware.Required())
	hod.Get("/by-id/:id", departmentInfoHandler.GetByID) // QAC any, others own department
	hod.Post("/", authMiddleware.RequireRole(model.RoleHOD), departmentInfoHandler.Create)
	hod.Get("/", authMiddleware.RequireRole(model.RoleHOD), departmentInfoHandler.Get)
	hod.Patch("/:id", authMiddleware.RequireRole(model.RoleHOD), departmentInfoHandler.Update)
	hod.Delete("/:id", authMiddleware.RequireRole(model.RoleHOD), departmentInfoHandler.Delete)

	// ==================== Departments: submissions ====================

	dept := app.Group("/department/kpi", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleHOD, model.RoleFaculty))
	dept.Get("/", assignmentHandler.ListDepartmentKpis)
	dept.Patch("/:id/submit", assignmentHandler.Submit)
	dept.Post("/:id/files", assignmentHandler.UploadFile)
}
