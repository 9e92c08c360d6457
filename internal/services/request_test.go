package services

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice/internal/dto"
	"fieldservice/internal/entities"
	"fieldservice/internal/events"
	"fieldservice/pkg/constants"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/types"
)

var (
	engineer  = types.Actor{UserID: engineerID, Role: constants.RoleEngineer}
	engineer2 = types.Actor{UserID: engineer2ID, Role: constants.RoleEngineer}
	operator  = types.Actor{UserID: operatorID, Role: constants.RoleOperator}
	manager   = types.Actor{UserID: managerID, Role: constants.RoleManager}
)

func validCreateDTO() dto.CreateRequestDTO {
	return dto.CreateRequestDTO{
		StatusID:     constants.StatusCreated,
		Phone:        "+7 900 123-45-67",
		Address:      " ул. Мира, 5 ",
		Techniq:      "Холодильник",
		Description:  "Не морозит",
		CustomerName: "Сергей Клиентов",
	}
}

func TestRequestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("operator creates request with engineer", func(t *testing.T) {
		env := newTestEnv()
		payload := validCreateDTO()
		eng := int64(engineerID)
		payload.EngineerID = &eng

		created, err := env.requests.Create(ctx, operator, payload)
		require.NoError(t, err)

		assert.Equal(t, "ул. Мира, 5", created.Address)
		assert.Equal(t, null.Int64From(int64(operatorID)), created.OperatorID)
		assert.True(t, created.AssignedTime.Valid)
		assert.True(t, created.AssignedTime.Time.Equal(created.CreationDate))
		require.Len(t, env.bus.events, 1)
	})

	t.Run("only operator may create", func(t *testing.T) {
		env := newTestEnv()
		for _, actor := range []types.Actor{engineer, manager} {
			_, err := env.requests.Create(ctx, actor, validCreateDTO())
			assert.ErrorIs(t, err, apperrors.ErrForbidden)
		}
		assert.Empty(t, env.store.requests)
	})

	t.Run("engineer_id must reference an engineer", func(t *testing.T) {
		env := newTestEnv()
		payload := validCreateDTO()
		op := int64(operatorID)
		payload.EngineerID = &op

		_, err := env.requests.Create(ctx, operator, payload)
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		missing := int64(999)
		payload.EngineerID = &missing
		_, err = env.requests.Create(ctx, operator, payload)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Empty(t, env.store.requests)
	})

	t.Run("short phone and plain fields", func(t *testing.T) {
		env := newTestEnv()
		created, err := env.requests.Create(ctx, operator, dto.CreateRequestDTO{
			StatusID:     1,
			Phone:        "555",
			Address:      "A St",
			Techniq:      "router",
			Description:  "no signal",
			CustomerName: "Bob",
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "555", created.Phone)
		assert.False(t, created.EngineerID.Valid)
		assert.False(t, created.AssignedTime.Valid)
	})

	t.Run("blank required field", func(t *testing.T) {
		env := newTestEnv()
		payload := validCreateDTO()
		payload.CustomerName = "   "
		_, err := env.requests.Create(ctx, operator, payload)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestRequestUpdate_OperatorAssignsEngineer(t *testing.T) {
	env := newTestEnv()
	id := env.seedRequest(nil)

	updated, err := env.requests.Update(context.Background(), operator, id, entities.RequestChanges{
		entities.FieldEngineerID: int64(engineerID),
		entities.FieldStatusID:   constants.StatusAssigned,
	})
	require.NoError(t, err)

	assert.True(t, updated.IsAssignedTo(engineerID))
	assert.Equal(t, constants.StatusAssigned, updated.StatusID)
	require.True(t, updated.AssignedTime.Valid)
	assert.True(t, updated.AssignedTime.Time.Equal(testNow))

	history := env.store.historyFor(id)
	require.Len(t, history, 3)
	assert.Equal(t, "engineer_id", history[0].FieldName)
	assert.False(t, history[0].OldValue.Valid)
	assert.Equal(t, "1", history[0].NewValue.String)

	assert.Equal(t, "status_id", history[1].FieldName)
	assert.Equal(t, "Создана", history[1].OldValue.String)
	assert.Equal(t, "Назначена", history[1].NewValue.String)

	assert.Equal(t, "assigned_time", history[2].FieldName)
	assert.Equal(t, testNow.Format(time.RFC3339), history[2].NewValue.String)
	for _, h := range history {
		assert.Equal(t, int64(operatorID), h.ChangerID.Int64)
	}

	require.Len(t, env.bus.events, 1)
	ev := env.bus.events[0].(events.RequestChangedEvent)
	assert.Equal(t, []string{"engineer_id", "status_id", "assigned_time"}, ev.ChangedFields)
	assert.Equal(t, []uint64{engineerID}, ev.Participants())
}

func TestRequestUpdate_EngineerFieldRestrictions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	id := env.seedRequest(func(r *entities.Request) {
		r.EngineerID = null.Int64From(int64(engineerID))
		r.StatusID = constants.StatusAssigned
	})
	inWorks := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)

	t.Run("other fields are silently dropped", func(t *testing.T) {
		updated, err := env.requests.Update(ctx, engineer, id, entities.RequestChanges{
			entities.FieldAddress:     "другой адрес",
			entities.FieldStatusID:    constants.StatusDone,
			entities.FieldInWorksTime: inWorks,
		})
		require.NoError(t, err)
		assert.Equal(t, "ул. Ленина, 1", updated.Address)
		assert.Equal(t, constants.StatusAssigned, updated.StatusID)
		assert.True(t, updated.InWorksTime.Time.Equal(inWorks))

		history := env.store.historyFor(id)
		require.Len(t, history, 1)
		assert.Equal(t, "in_works_time", history[0].FieldName)
	})

	t.Run("only forbidden fields gives no-op", func(t *testing.T) {
		_, err := env.requests.Update(ctx, engineer, id, entities.RequestChanges{
			entities.FieldAddress: "другой адрес",
		})
		assert.ErrorIs(t, err, apperrors.ErrNoOp)
	})

	t.Run("request of another engineer", func(t *testing.T) {
		_, err := env.requests.Update(ctx, engineer2, id, entities.RequestChanges{
			entities.FieldDoneTime: inWorks,
		})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("same value gives no-op and no history", func(t *testing.T) {
		before := len(env.store.history)
		_, err := env.requests.Update(ctx, engineer, id, entities.RequestChanges{
			entities.FieldInWorksTime: inWorks.In(time.FixedZone("MSK", 3*3600)),
		})
		assert.ErrorIs(t, err, apperrors.ErrNoOp)
		assert.Len(t, env.store.history, before)
	})
}

func TestRequestUpdate_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	id := env.seedRequest(nil)

	cases := map[string]entities.RequestChanges{
		"unknown status":         {entities.FieldStatusID: int64(9)},
		"null status":            {entities.FieldStatusID: nil},
		"engineer is operator":   {entities.FieldEngineerID: int64(operatorID)},
		"operator is engineer":   {entities.FieldOperatorID: int64(engineerID)},
		"missing user":           {entities.FieldEngineerID: int64(777)},
		"empty address":          {entities.FieldAddress: " "},
		"bad phone":              {entities.FieldPhone: "call me"},
		"time as string":         {entities.FieldDoneTime: "yesterday"},
		"id of wrong type":       {entities.FieldStatusID: "2"},
		"null customer name":     {entities.FieldCustomerName: nil},
		"valid field with error": {entities.FieldAddress: "ok", entities.FieldStatusID: int64(0)},
	}
	for name, changes := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.requests.Update(ctx, manager, id, changes)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
	assert.Empty(t, env.store.history)
	assert.Equal(t, "ул. Ленина, 1", env.store.requests[id].Address)
}

func TestRequestUpdate_NotFoundAndEmpty(t *testing.T) {
	env := newTestEnv()
	_, err := env.requests.Update(context.Background(), manager, 424242, entities.RequestChanges{
		entities.FieldAddress: "x",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	id := env.seedRequest(nil)
	_, err = env.requests.Update(context.Background(), manager, id, entities.RequestChanges{})
	assert.ErrorIs(t, err, apperrors.ErrNoOp)
}

func TestRequestUpdate_AuditFailureRollsBack(t *testing.T) {
	env := newTestEnv()
	id := env.seedRequest(nil)
	env.store.failHistory = true

	_, err := env.requests.Update(context.Background(), operator, id, entities.RequestChanges{
		entities.FieldAddress: "пр. Победы, 10",
	})
	require.ErrorIs(t, err, apperrors.ErrStore)

	assert.Equal(t, "ул. Ленина, 1", env.store.requests[id].Address)
	assert.Empty(t, env.store.history)
	assert.Equal(t, 1, env.tx.rollbacks)
	assert.Empty(t, env.bus.events)
}

func TestRequestUpdate_KeepsExplicitAssignedTime(t *testing.T) {
	env := newTestEnv()
	id := env.seedRequest(nil)
	explicit := time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC)

	updated, err := env.requests.Update(context.Background(), manager, id, entities.RequestChanges{
		entities.FieldEngineerID:   int64(engineerID),
		entities.FieldAssignedTime: explicit,
	})
	require.NoError(t, err)
	assert.True(t, updated.AssignedTime.Time.Equal(explicit))
}

func TestRequestUpdate_ReassignRestampsAssignedTime(t *testing.T) {
	env := newTestEnv()
	assigned := time.Date(2024, 5, 11, 8, 0, 0, 0, time.UTC)
	id := env.seedRequest(func(r *entities.Request) {
		r.EngineerID = null.Int64From(int64(engineerID))
		r.AssignedTime = null.TimeFrom(assigned)
	})

	updated, err := env.requests.Update(context.Background(), operator, id, entities.RequestChanges{
		entities.FieldEngineerID: int64(engineer2ID),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(engineer2ID), updated.EngineerID.Int64)
	assert.True(t, updated.AssignedTime.Time.Equal(testNow))

	history := env.store.historyFor(id)
	require.Len(t, history, 2)
	assert.Equal(t, "engineer_id", history[0].FieldName)
	assert.Equal(t, "assigned_time", history[1].FieldName)
}

func TestRequestUpdate_ClearEngineer(t *testing.T) {
	env := newTestEnv()
	assigned := time.Date(2024, 5, 11, 8, 0, 0, 0, time.UTC)
	id := env.seedRequest(func(r *entities.Request) {
		r.EngineerID = null.Int64From(int64(engineerID))
		r.AssignedTime = null.TimeFrom(assigned)
	})

	updated, err := env.requests.Update(context.Background(), operator, id, entities.RequestChanges{
		entities.FieldEngineerID: nil,
	})
	require.NoError(t, err)
	assert.False(t, updated.EngineerID.Valid)

	history := env.store.historyFor(id)
	require.Len(t, history, 1)
	assert.Equal(t, "1", history[0].OldValue.String)
	assert.False(t, history[0].NewValue.Valid)
}

func TestRequestSoftDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	id := env.seedRequest(nil)

	_, err := env.requests.SoftDelete(ctx, engineer, id)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	deleted, err := env.requests.SoftDelete(ctx, operator, id)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDeleted, deleted.StatusID)
	assert.Contains(t, env.store.requests, id)

	history := env.store.historyFor(id)
	require.Len(t, history, 1)
	assert.Equal(t, "Удалена", history[0].NewValue.String)

	_, err = env.requests.SoftDelete(ctx, manager, id)
	assert.ErrorIs(t, err, apperrors.ErrNoOp)
}

func TestRequestQueries(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	mine := env.seedRequest(func(r *entities.Request) { r.EngineerID = null.Int64From(int64(engineerID)) })
	env.seedRequest(func(r *entities.Request) {
		r.EngineerID = null.Int64From(int64(engineerID))
		r.StatusID = constants.StatusDeleted
	})
	foreign := env.seedRequest(func(r *entities.Request) { r.EngineerID = null.Int64From(int64(engineer2ID)) })
	for i := 0; i < 12; i++ {
		env.seedRequest(func(r *entities.Request) {
			r.EngineerID = null.Int64From(int64(engineerID))
			r.StatusID = constants.StatusDone
			r.DoneTime = null.TimeFrom(testNow)
		})
	}

	t.Run("engineer sees only own requests", func(t *testing.T) {
		other := engineer2ID
		list, err := env.requests.ListByEngineer(ctx, engineer, &other, nil, nil)
		require.NoError(t, err)
		for _, r := range list {
			assert.True(t, r.IsAssignedTo(engineerID))
			assert.NotEqual(t, constants.StatusDeleted, r.StatusID)
		}
		assert.Len(t, list, 13)
	})

	t.Run("operator must name the engineer", func(t *testing.T) {
		_, err := env.requests.ListByEngineer(ctx, operator, nil, nil, nil)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unknown status in filter", func(t *testing.T) {
		id := engineerID
		_, err := env.requests.ListByEngineer(ctx, operator, &id, []int64{7}, nil)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("completed pages of ten", func(t *testing.T) {
		page1, total, err := env.requests.ListCompleted(ctx, engineer, nil, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(12), total)
		assert.Len(t, page1, constants.CompletedPageSize)

		page2, _, err := env.requests.ListCompleted(ctx, engineer, nil, 2)
		require.NoError(t, err)
		assert.Len(t, page2, 2)
	})

	t.Run("find by id respects assignment", func(t *testing.T) {
		_, err := env.requests.FindByID(ctx, engineer, foreign)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)

		got, err := env.requests.FindByID(ctx, engineer, mine)
		require.NoError(t, err)
		assert.Equal(t, mine, got.ID)
	})

	t.Run("filter narrows engineer to self", func(t *testing.T) {
		list, total, err := env.requests.Filter(ctx, engineer2, entities.RequestFilter{
			EngineerID: null.Int64From(int64(engineerID)),
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		assert.Equal(t, foreign, list[0].ID)
	})

	t.Run("filter rejects inverted period", func(t *testing.T) {
		_, _, err := env.requests.Filter(ctx, manager, entities.RequestFilter{
			DateFrom: null.TimeFrom(testNow),
			DateTo:   null.TimeFrom(testNow.Add(-time.Hour)),
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestRequestHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	id := env.seedRequest(nil)

	_, err := env.requests.Update(ctx, operator, id, entities.RequestChanges{
		entities.FieldStatusID:   constants.StatusAssigned,
		entities.FieldEngineerID: int64(engineerID),
	})
	require.NoError(t, err)

	items, err := env.history.GetHistory(ctx, manager, id)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Ольга Операторова", items[0].ChangerName)

	_, err = env.history.GetHistory(ctx, engineer2, id)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.history.GetHistory(ctx, manager, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAuditValue_UnknownStatusFallsBackToCode(t *testing.T) {
	assert.Equal(t, "3", auditValue(entities.FieldStatusID, int64(3), nil).String)
	assert.Equal(t, "В работе", auditValue(entities.FieldStatusID, int64(3), map[int64]string{3: "В работе"}).String)
	assert.False(t, auditValue(entities.FieldDoneTime, nil, nil).Valid)
}
