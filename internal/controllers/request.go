package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"fieldservice/internal/dto"
	"fieldservice/internal/entities"
	"fieldservice/internal/services"
	"fieldservice/pkg/constants"
	"fieldservice/pkg/types"
	"fieldservice/pkg/utils"
)

type RequestController struct {
	requestService services.RequestServiceInterface
	logger         *zap.Logger
	location       *time.Location
}

func NewRequestController(requestService services.RequestServiceInterface, logger *zap.Logger) *RequestController {
	return &RequestController{
		requestService: requestService,
		logger:         logger,
		location:       time.Local,
	}
}

func (c *RequestController) Create(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.CreateRequestDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, utils.BadRequest("Неверный формат данных заявки", err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		c.logger.Debug("Create: ошибка валидации", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.requestService.Create(reqCtx, actor, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заявка успешно создана", http.StatusCreated)
}

func (c *RequestController) Update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	// тело читаем напрямую: Bind подмешал бы в карту параметры пути
	var payload dto.UpdateRequestDTO
	if err := json.NewDecoder(ctx.Request().Body).Decode(&payload); err != nil {
		return utils.ErrorResponse(ctx, utils.BadRequest("Тело запроса должно быть JSON-объектом", err), c.logger)
	}
	changes, dropped, err := payload.ToChanges()
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if len(dropped) > 0 {
		c.logger.Debug("Отброшены поля, которые нельзя изменить",
			zap.Uint64("requestID", id),
			zap.Strings("fields", dropped),
		)
	}

	res, err := c.requestService.Update(reqCtx, actor, id, changes)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заявка успешно обновлена", http.StatusOK)
}

func (c *RequestController) SoftDelete(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.requestService.SoftDelete(reqCtx, actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заявка удалена", http.StatusOK)
}

func (c *RequestController) FindByID(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.requestService.FindByID(reqCtx, actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заявка найдена", http.StatusOK)
}

// ListByEngineer: GET /requests/engineer?engineer_id=&date=YYYY-MM-DD&status=1,2
func (c *RequestController) ListByEngineer(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	engineerID, err := utils.ParseOptionalUint(ctx.QueryParam("engineer_id"), "engineer_id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	statuses, err := utils.ParseInt64List(ctx.QueryParam("status"))
	if err != nil {
		return utils.ErrorResponse(ctx, utils.BadRequest("Неверный список статусов", err), c.logger)
	}
	var day *time.Time
	if raw := ctx.QueryParam("date"); raw != "" {
		parsed, err := utils.ParseDate(raw, c.location)
		if err != nil {
			return utils.ErrorResponse(ctx, utils.BadRequest("Неверная дата", err), c.logger)
		}
		day = &parsed
	}

	res, err := c.requestService.ListByEngineer(reqCtx, actor, engineerID, statuses, day)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Список заявок получен", http.StatusOK)
}

// ListCompleted: GET /requests/completed/:page?engineer_id=
func (c *RequestController) ListCompleted(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	page, err := utils.ParseIDParam(ctx, "page")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	engineerID, err := utils.ParseOptionalUint(ctx.QueryParam("engineer_id"), "engineer_id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	list, total, err := c.requestService.ListCompleted(reqCtx, actor, engineerID, page)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	limit := uint64(constants.CompletedPageSize)
	body := map[string]interface{}{
		"list": list,
		"pagination": types.PaginationMeta{
			TotalCount: total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + limit - 1) / limit,
		},
	}
	return utils.SuccessResponse(ctx, body, "Выполненные заявки получены", http.StatusOK)
}

// Filter: GET /requests/filter?engineer_id=&status=&date_from=&date_to=&limit=&page=
func (c *RequestController) Filter(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	filter, err := c.parseFilter(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	list, total, err := c.requestService.Filter(reqCtx, actor, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "Список заявок получен", http.StatusOK, total)
}

func (c *RequestController) parseFilter(ctx echo.Context) (entities.RequestFilter, error) {
	pagination := utils.ParsePaginationParams(ctx.Request().URL.Query())
	filter := entities.RequestFilter{Limit: pagination.Limit, Offset: pagination.Offset}

	if raw := ctx.QueryParam("engineer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, utils.BadRequest("Неверный параметр 'engineer_id'", err)
		}
		filter.EngineerID = null.Int64From(id)
	}

	statuses, err := utils.ParseInt64List(ctx.QueryParam("status"))
	if err != nil {
		return filter, utils.BadRequest("Неверный список статусов", err)
	}
	filter.StatusIDs = statuses

	if raw := ctx.QueryParam("date_from"); raw != "" {
		from, err := utils.ParseDate(raw, c.location)
		if err != nil {
			return filter, utils.BadRequest("Неверная дата начала", err)
		}
		filter.DateFrom = null.TimeFrom(from)
	}
	if raw := ctx.QueryParam("date_to"); raw != "" {
		to, err := utils.ParseDate(raw, c.location)
		if err != nil {
			return filter, utils.BadRequest("Неверная дата окончания", err)
		}
		// дата окончания включительно
		_, end := utils.DayBounds(to)
		filter.DateTo = null.TimeFrom(end)
	}
	return filter, nil
}
