package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dushixiang/athscan/internal/service"
	"github.com/dushixiang/athscan/internal/xe"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ScanHandler 扫描结果HTTP处理器
type ScanHandler struct {
	scanLoop       *service.ScanLoop
	publishService *service.PublishService
	highService    *service.HighService
	logger         *zap.Logger
}

// NewScanHandler 创建扫描处理器
func NewScanHandler(
	scanLoop *service.ScanLoop,
	publishService *service.PublishService,
	highService *service.HighService,
	logger *zap.Logger,
) *ScanHandler {
	return &ScanHandler{
		scanLoop:       scanLoop,
		publishService: publishService,
		highService:    highService,
		logger:         logger,
	}
}

type runsQuery struct {
	Limit int `query:"limit" validate:"min=1,max=100"`
}

// GetLatest 获取最近一次发布的 setup 列表
// GET /api/setups/latest
func (h *ScanHandler) GetLatest(c echo.Context) error {
	ctx := c.Request().Context()

	pub, err := h.publishService.Latest(ctx)
	if err != nil {
		return err
	}
	if pub == nil {
		return xe.ErrNoPublishedScan
	}
	return c.JSON(http.StatusOK, pub)
}

// GetRuns 获取最近的扫描记录
// GET /api/setups/runs?limit=20
func (h *ScanHandler) GetRuns(c echo.Context) error {
	ctx := c.Request().Context()

	query := runsQuery{Limit: 20}
	if err := c.Bind(&query); err != nil {
		return xe.ErrInvalidParams
	}
	if err := c.Validate(&query); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	runs, err := h.publishService.Recent(ctx, query.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

// GetRun 获取指定扫描的结果
// GET /api/setups/runs/:id
func (h *ScanHandler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	pub, err := h.publishService.FindRun(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if pub == nil {
		return xe.ErrNotFound
	}
	return c.JSON(http.StatusOK, pub)
}

// GetHighs 获取全部ATH记录
// GET /api/highs
func (h *ScanHandler) GetHighs(c echo.Context) error {
	ctx := c.Request().Context()

	highs, err := h.highService.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, highs)
}

// GetHigh 获取交易对的ATH记录
// GET /api/highs/:symbol
func (h *ScanHandler) GetHigh(c echo.Context) error {
	ctx := c.Request().Context()

	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	record, err := h.highService.Get(ctx, symbol)
	if err != nil {
		return err
	}
	if record == nil {
		return xe.ErrUnknownSymbol
	}
	return c.JSON(http.StatusOK, record)
}

// GetStatus 获取扫描调度状态
// GET /api/scan/status
func (h *ScanHandler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scanLoop.GetStatus())
}

// RunScan 立即执行一次扫描，完成后返回结果
// POST /api/scan/run
func (h *ScanHandler) RunScan(c echo.Context) error {
	// 客户端断开时扫描继续执行
	ctx := context.WithoutCancel(c.Request().Context())

	h.logger.Info("manual scan triggered", zap.String("remote_ip", c.RealIP()))
	result, err := h.scanLoop.RunNow(ctx)
	if err != nil {
		if errors.Is(err, service.ErrCycleInProgress) {
			return xe.ErrCycleInProgress
		}
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// RegisterRoutes 注册路由
func (h *ScanHandler) RegisterRoutes(api *echo.Group) {
	setups := api.Group("/setups")
	{
		setups.GET("/latest", h.GetLatest)
		setups.GET("/runs", h.GetRuns)
		setups.GET("/runs/:id", h.GetRun)
	}

	api.GET("/highs", h.GetHighs)
	api.GET("/highs/:symbol", h.GetHigh)

	scan := api.Group("/scan")
	{
		scan.GET("/status", h.GetStatus)
		scan.POST("/run", h.RunScan)
	}
}
