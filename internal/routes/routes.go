package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"asset-transfer-system/internal/controllers"
	"asset-transfer-system/internal/listeners"
	"asset-transfer-system/internal/repositories"
	"asset-transfer-system/internal/services"
	"asset-transfer-system/pkg/config"
	"asset-transfer-system/pkg/eventbus"
	"asset-transfer-system/pkg/middleware"
	"asset-transfer-system/pkg/service"
)

// InitRouter собирает граф зависимостей и регистрирует все маршруты.
func InitRouter(
	e *echo.Echo,
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	jwtSvc service.JWTService,
	bus *eventbus.Bus,
	cfg *config.Config,
	logger *zap.Logger,
) {
	logger.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")
	txManager := repositories.NewTxManager(dbConn)

	// --- РЕПОЗИТОРИИ ---
	userRepo := repositories.NewUserRepository(dbConn)
	branchRepo := repositories.NewBranchRepository(dbConn, logger)
	machineRepo := repositories.NewMachineRepository(dbConn, logger)
	simRepo := repositories.NewSimRepository(dbConn, logger)
	transferRepo := repositories.NewTransferRepository(dbConn, logger)
	maintenanceRepo := repositories.NewMaintenanceRepository(dbConn)
	movementRepo := repositories.NewMovementLogRepository(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// --- СЕРВИСЫ ---
	branchService := services.NewBranchService(branchRepo, userRepo, cacheRepo, cfg.Cache.AuthorizedBranchesTTL, logger)
	validationService := services.NewTransferValidationService(machineRepo, simRepo, branchRepo, transferRepo, logger)
	transferService := services.NewTransferService(
		txManager, transferRepo, machineRepo, simRepo,
		maintenanceRepo, movementRepo, validationService, bus, logger,
	)
	lifecycleService := services.NewLifecycleService(
		txManager, machineRepo, simRepo, maintenanceRepo, movementRepo, bus, logger,
	)
	maintenanceService := services.NewMaintenanceService(maintenanceRepo, machineRepo, simRepo, logger)
	movementService := services.NewMovementLogService(movementRepo)
	assetService := services.NewAssetService(machineRepo, simRepo)
	authService := services.NewAuthService(userRepo, jwtSvc, logger)

	// --- СЛУШАТЕЛИ ---
	sink := listeners.NewLogSink(logger)
	listeners.NewNotificationListener(sink, logger).Register(bus)

	// --- КОНТРОЛЛЕРЫ И МАРШРУТЫ ---
	authMW := middleware.NewAuthMiddleware(jwtSvc, branchService, logger)
	secureGroup := api.Group("", authMW.Auth)

	runAuthRouter(api, secureGroup, authService, logger)
	runTransferRouter(secureGroup, transferService, logger)
	runLifecycleRouter(secureGroup, lifecycleService, logger)
	runMaintenanceRouter(secureGroup, maintenanceService, logger)
	runBranchRouter(secureGroup, branchService, logger)
	runAssetRouter(secureGroup, assetService, logger)
	runMovementRouter(secureGroup, movementService, logger)

	logger.Info("InitRouter: Маршруты созданы")
}

func runAuthRouter(api *echo.Group, secure *echo.Group, authService services.AuthServiceInterface, logger *zap.Logger) {
	authCtrl := controllers.NewAuthController(authService, logger)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authCtrl.Login)
		authGroup.POST("/refresh_token", authCtrl.Refresh)
	}
	secure.GET("/auth/me", authCtrl.Me)
}

func runTransferRouter(group *echo.Group, transferService services.TransferServiceInterface, logger *zap.Logger) {
	ctrl := controllers.NewTransferController(transferService, logger)

	group.POST("/transfer-orders", ctrl.CreateTransferOrder)
	group.POST("/transfer-orders/bulk", ctrl.CreateBulkTransfer)
	group.GET("/transfer-orders", ctrl.GetTransferOrders)
	group.GET("/transfer-orders/pending", ctrl.GetPendingOrders)
	group.GET("/transfer-orders/pending-serials", ctrl.GetPendingSerials)
	group.GET("/transfer-orders/:id", ctrl.FindTransferOrder)
	group.POST("/transfer-orders/:id/receive", ctrl.ReceiveTransferOrder)
	group.POST("/transfer-orders/:id/cancel", ctrl.CancelTransferOrder)
}

func runLifecycleRouter(group *echo.Group, lifecycleService services.LifecycleServiceInterface, logger *zap.Logger) {
	ctrl := controllers.NewLifecycleController(lifecycleService, logger)

	group.POST("/assets/:serial/transition", ctrl.Transition)
	group.GET("/kanban/stats", ctrl.GetKanbanStats)
}

func runMaintenanceRouter(group *echo.Group, maintenanceService services.MaintenanceServiceInterface, logger *zap.Logger) {
	ctrl := controllers.NewMaintenanceController(maintenanceService, logger)

	group.POST("/maintenance-requests", ctrl.CreateRequest)
	group.GET("/maintenance-requests", ctrl.GetRequests)
	group.GET("/maintenance-requests/:id", ctrl.FindRequest)
}

func runBranchRouter(group *echo.Group, branchService services.BranchServiceInterface, logger *zap.Logger) {
	ctrl := controllers.NewBranchController(branchService, logger)

	group.GET("/branches", ctrl.GetBranches)
	group.GET("/branches/:id", ctrl.FindBranch)
}

func runAssetRouter(group *echo.Group, assetService services.AssetServiceInterface, logger *zap.Logger) {
	ctrl := controllers.NewAssetController(assetService, logger)

	group.GET("/machines", ctrl.GetMachines)
	group.GET("/sim-cards", ctrl.GetSimCards)
	group.GET("/assets/:serial", ctrl.FindAsset)
}

func runMovementRouter(group *echo.Group, movementService services.MovementLogServiceInterface, logger *zap.Logger) {
	ctrl := controllers.NewMovementController(movementService, logger)

	group.GET("/movements", ctrl.GetMovements)
	group.GET("/assets/:serial/history", ctrl.GetAssetHistory)
}
