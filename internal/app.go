package internal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/dushixiang/athscan/internal/handler"
	"github.com/dushixiang/athscan/internal/models"
	"github.com/dushixiang/athscan/internal/repo"
	"github.com/dushixiang/athscan/internal/service"
	"github.com/dushixiang/athscan/internal/telegram"
	"github.com/dushixiang/athscan/pkg/nostd"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewAthscanApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewAthscanApp() orz.Application {
	return &AthscanApp{}
}

var _ orz.Application = (*AthscanApp)(nil)

type AppComponents struct {
	ScanHandler *handler.ScanHandler

	ScanLoop       *service.ScanLoop
	PublishService *service.PublishService
	Metrics        *service.Metrics

	tg *telegram.Telegram
}

type AthscanApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *AthscanApp) GetComponents() *AppComponents {
	return r.components
}

func (r *AthscanApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	for _, item := range conf.Normalize() {
		logger.Warn("invalid config value replaced by default", zap.String("item", item))
	}

	if err := repo.PrepareDB(db); err != nil {
		return fmt.Errorf("failed to prepare database: %v", err)
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.HistoricalHigh{}, models.ScanRun{}, models.SetupList{}, models.RSIReading{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	e.GET("/metrics", echo.WrapHandler(r.components.Metrics.Handler()))

	api := e.Group("/api")
	{
		r.components.ScanHandler.RegisterRoutes(api)
	}

	return nil
}

func (r *AthscanApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("ATH Scanner Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.tg != nil {
		err := components.tg.Register(
			telegram.Command{Text: "/status", Description: "扫描状态", Reply: components.ScanLoop.StatusText},
			telegram.Command{Text: "/setups", Description: "最近一次的 setup 列表", Reply: components.PublishService.LatestSummary},
		)
		if err != nil {
			logger.Warn("failed to register telegram commands", zap.Error(err))
		}
		components.tg.Start()
		logger.Info("telegram bot started")
	}

	if !r.conf.Scan.Enabled {
		logger.Info("scheduled scan disabled, use POST /api/scan/run to trigger a cycle")
		return nil
	}

	logger.Info("Scan loop initialized, starting...")

	go func() {
		if err := components.ScanLoop.Start(context.Background()); err != nil {
			logger.Error("scan loop error", zap.Error(err))
		}
	}()
	return nil
}
