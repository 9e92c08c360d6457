package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice/internal/entities"
	apperrors "fieldservice/pkg/errors"
)

func parseUpdate(t *testing.T, body string) (entities.RequestChanges, error) {
	t.Helper()
	changes, _, err := parseUpdateDropped(t, body)
	return changes, err
}

func parseUpdateDropped(t *testing.T, body string) (entities.RequestChanges, []string, error) {
	t.Helper()
	var d UpdateRequestDTO
	require.NoError(t, json.Unmarshal([]byte(body), &d))
	return d.ToChanges()
}

func TestUpdateRequestDTO_ToChanges(t *testing.T) {
	changes, err := parseUpdate(t, `{
		"status_id": 3,
		"engineer_id": null,
		"address": "  ул. Ленина, 1 ",
		"in_works_time": "2024-05-01T10:00:00+03:00"
	}`)
	require.NoError(t, err)

	assert.Equal(t, int64(3), changes[entities.FieldStatusID])
	v, present := changes[entities.FieldEngineerID]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, "ул. Ленина, 1", changes[entities.FieldAddress])

	inWorks, ok := changes[entities.FieldInWorksTime].(time.Time)
	require.True(t, ok)
	assert.True(t, inWorks.Equal(time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)))
}

func TestUpdateRequestDTO_Rejects(t *testing.T) {
	cases := map[string]string{
		"float id":       `{"status_id": 1.5}`,
		"string id":      `{"engineer_id": "7"}`,
		"bad time":       `{"done_time": "01.05.2024"}`,
		"number as text": `{"phone": 89001234567}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseUpdate(t, body)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestUpdateRequestDTO_DropsUnknownAndImmutable(t *testing.T) {
	changes, dropped, err := parseUpdateDropped(t, `{
		"done_time": "2025-01-02T10:00:00Z",
		"creation_date": "2020-01-01T00:00:00Z",
		"request_id": 9,
		"comment": "fixed"
	}`)
	require.NoError(t, err)

	assert.Len(t, changes, 1)
	doneTime, ok := changes[entities.FieldDoneTime].(time.Time)
	require.True(t, ok)
	assert.True(t, doneTime.Equal(time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"comment", "creation_date", "request_id"}, dropped)

	changes, dropped, err = parseUpdateDropped(t, `{}`)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Empty(t, dropped)
}
