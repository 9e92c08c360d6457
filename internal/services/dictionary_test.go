package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fieldservice/internal/entities"
	"fieldservice/pkg/constants"
)

type countingDictRepo struct {
	calls int
	err   error
}

func (r *countingDictRepo) FindAllStatuses(_ context.Context) ([]entities.Status, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []entities.Status{{ID: 1, Name: "Создана"}, {ID: 4, Name: "Выполнена"}}, nil
}

func (r *countingDictRepo) FindAllRoles(_ context.Context) ([]entities.Role, error) {
	return []entities.Role{{ID: 1, Name: "Инженер"}}, nil
}

func TestDictionaryStatuses_CachedAfterFirstRead(t *testing.T) {
	ctx := context.Background()
	repo := &countingDictRepo{}
	cache := newMemCache()
	svc := NewDictionaryService(repo, cache, time.Hour, zap.NewNop())

	first, err := svc.Statuses(ctx)
	require.NoError(t, err)
	second, err := svc.Statuses(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)
	assert.True(t, cache.has(constants.CacheKeyStatusDictionary))
}

func TestDictionaryStatuses_CacheFailureFallsBackToStore(t *testing.T) {
	repo := &countingDictRepo{}
	cache := newMemCache()
	cache.failGet = errors.New("redis недоступен")
	svc := NewDictionaryService(repo, cache, time.Hour, zap.NewNop())

	names := svc.StatusNames(context.Background())
	assert.Equal(t, "Выполнена", names[4])
	assert.Equal(t, 1, repo.calls)
}

func TestDictionaryStatusNames_EmptyWhenStoreFails(t *testing.T) {
	repo := &countingDictRepo{err: errors.New("нет соединения")}
	svc := NewDictionaryService(repo, newMemCache(), time.Hour, zap.NewNop())

	names := svc.StatusNames(context.Background())
	assert.NotNil(t, names)
	assert.Empty(t, names)
}
