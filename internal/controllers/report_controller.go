package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"fieldservice/internal/dto"
	"fieldservice/internal/entities"
	"fieldservice/internal/services"
	"fieldservice/pkg/utils"
)

type ReportController struct {
	reportService services.ReportServiceInterface
	logger        *zap.Logger
	now           func() time.Time
}

func NewReportController(reportService services.ReportServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{reportService: reportService, logger: logger, now: time.Now}
}

// EngineerStats: POST /requests/engineers/stats {date_from, date_to, engineer_id?}
func (c *ReportController) EngineerStats(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.EngineerStatsDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, utils.BadRequest("Неверный формат периода", err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	stats, _, err := c.reportService.EngineerStats(reqCtx, actor, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, stats, "Статистика инженеров получена", http.StatusOK)
}

// MonthlyFunnel: GET /requests/stats/funnel?month=YYYY-MM (по умолчанию текущий месяц)
func (c *ReportController) MonthlyFunnel(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	month := c.now()
	if raw := ctx.QueryParam("month"); raw != "" {
		month, err = time.ParseInLocation("2006-01", raw, time.Local)
		if err != nil {
			return utils.ErrorResponse(ctx, utils.BadRequest("Месяц должен быть в формате ГГГГ-ММ", err), c.logger)
		}
	}

	counts, err := c.reportService.MonthlyFunnel(reqCtx, actor, month.Year(), month.Month())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, counts, "Воронка заявок получена", http.StatusOK)
}

// ExportEngineerStats: GET /reports/engineers.xlsx?date_from=&date_to=
func (c *ReportController) ExportEngineerStats(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	payload := dto.EngineerStatsDTO{
		DateFrom: ctx.QueryParam("date_from"),
		DateTo:   ctx.QueryParam("date_to"),
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	stats, period, err := c.reportService.EngineerStats(reqCtx, actor, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondWithXLSX(ctx, stats, period)
}

var engineerStatsHeaders = []string{"№", "ID инженера", "Инженер", "Выполнено заявок"}

func buildEngineerStatsFile(stats []entities.EngineerStat, period entities.StatsPeriod) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Выполненные заявки"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Период: %s - %s",
		period.From.Format("02.01.2006"),
		period.To.AddDate(0, 0, -1).Format("02.01.2006"),
	)
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A2", &engineerStatsHeaders); err != nil {
		return nil, err
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheet, "A2", "D2", style)

	var total int64
	for i, s := range stats {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		row := []interface{}{i + 1, s.EngineerID, s.EngineerName, s.Completed}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
		total += s.Completed
	}
	totalCell, _ := excelize.CoordinatesToCellName(3, len(stats)+3)
	_ = f.SetSheetRow(sheet, totalCell, &[]interface{}{"Итого", total})

	_ = f.SetColWidth(sheet, "C", "C", 35)
	_ = f.SetColWidth(sheet, "D", "D", 20)
	return f, nil
}

func (c *ReportController) respondWithXLSX(ctx echo.Context, stats []entities.EngineerStat, period entities.StatsPeriod) error {
	f, err := buildEngineerStatsFile(stats, period)
	if err != nil {
		c.logger.Error("Не удалось сформировать XLSX", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	defer f.Close()

	fileName := fmt.Sprintf("engineers_%s.xlsx", c.now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
