package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fieldservice/internal/entities"
	"fieldservice/internal/repositories"
	"fieldservice/pkg/constants"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/eventbus"
)

var testNow = time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)

// memStore - состояние "базы" для тестов сервисов.
type memStore struct {
	requests       map[uint64]entities.Request
	history        []entities.RequestHistory
	users          map[uint64]entities.User
	profiles       map[uint64]entities.EngineerProfile
	balanceHistory []entities.BalanceHistory
	nextID         uint64

	failHistory        bool
	failBalanceHistory bool
	calls              []string
}

func newMemStore() *memStore {
	return &memStore{
		requests: make(map[uint64]entities.Request),
		users:    make(map[uint64]entities.User),
		profiles: make(map[uint64]entities.EngineerProfile),
		nextID:   100,
	}
}

func (s *memStore) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) snapshot() *memStore {
	c := *s
	c.requests = make(map[uint64]entities.Request, len(s.requests))
	for k, v := range s.requests {
		c.requests[k] = v
	}
	c.users = make(map[uint64]entities.User, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.profiles = make(map[uint64]entities.EngineerProfile, len(s.profiles))
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	c.history = append([]entities.RequestHistory(nil), s.history...)
	c.balanceHistory = append([]entities.BalanceHistory(nil), s.balanceHistory...)
	c.calls = nil
	return &c
}

func (s *memStore) restore(from *memStore) {
	calls := s.calls
	*s = *from
	s.calls = calls
}

func (s *memStore) addUser(id uint64, role constants.Role, name string) {
	s.users[id] = entities.User{ID: id, RoleID: role, Name: name, Login: fmt.Sprintf("user%d", id)}
	if role == constants.RoleEngineer {
		s.profiles[id] = entities.EngineerProfile{ID: id, UserID: id, Balance: decimal.Zero, Schedule: "5/2"}
	}
}

func (s *memStore) historyFor(requestID uint64) []entities.RequestHistory {
	var out []entities.RequestHistory
	for _, h := range s.history {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	return out
}

// fakeTxManager откатывает memStore, если fn вернула ошибку.
type fakeTxManager struct {
	store     *memStore
	commits   int
	rollbacks int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	saved := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(saved)
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

// ---------- requests ----------

type fakeRequestRepo struct{ store *memStore }

func applyChange(r *entities.Request, f entities.RequestField, v any) {
	toInt := func(v any) null.Int64 {
		if v == nil {
			return null.Int64{}
		}
		return null.Int64From(v.(int64))
	}
	toTime := func(v any) null.Time {
		if v == nil {
			return null.Time{}
		}
		return null.TimeFrom(v.(time.Time))
	}
	switch f {
	case entities.FieldOperatorID:
		r.OperatorID = toInt(v)
	case entities.FieldEngineerID:
		r.EngineerID = toInt(v)
	case entities.FieldStatusID:
		r.StatusID = v.(int64)
	case entities.FieldPhone:
		r.Phone = v.(string)
	case entities.FieldAddress:
		r.Address = v.(string)
	case entities.FieldTechniq:
		r.Techniq = v.(string)
	case entities.FieldDescription:
		r.Description = v.(string)
	case entities.FieldCustomerName:
		r.CustomerName = v.(string)
	case entities.FieldAssignedTime:
		r.AssignedTime = toTime(v)
	case entities.FieldInWorksTime:
		r.InWorksTime = toTime(v)
	case entities.FieldDoneTime:
		r.DoneTime = toTime(v)
	}
}

func (r *fakeRequestRepo) Create(_ context.Context, _ pgx.Tx, req *entities.Request) (*entities.Request, error) {
	created := *req
	created.ID = r.store.id()
	created.CreationDate = testNow
	if created.EngineerID.Valid {
		created.AssignedTime = null.TimeFrom(testNow)
	}
	r.store.requests[created.ID] = created
	return &created, nil
}

func (r *fakeRequestRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Request, error) {
	req, ok := r.store.requests[id]
	if !ok {
		return nil, apperrors.NewNotFound("заявка не найдена")
	}
	return &req, nil
}

func (r *fakeRequestRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Request, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *fakeRequestRepo) UpdateFields(_ context.Context, _ pgx.Tx, id uint64, changes entities.RequestChanges) (*entities.Request, error) {
	req, ok := r.store.requests[id]
	if !ok {
		return nil, apperrors.NewNotFound("заявка не найдена")
	}
	for f, v := range changes {
		applyChange(&req, f, v)
	}
	r.store.requests[id] = req
	return &req, nil
}

func (r *fakeRequestRepo) ListByEngineer(_ context.Context, engineerID uint64, statuses []int64, from, to *time.Time) ([]entities.Request, error) {
	var out []entities.Request
	for _, req := range r.store.requests {
		if !req.IsAssignedTo(engineerID) {
			continue
		}
		if len(statuses) == 0 && req.StatusID == constants.StatusDeleted {
			continue
		}
		if len(statuses) > 0 && !containsInt64(statuses, req.StatusID) {
			continue
		}
		if from != nil && (req.CreationDate.Before(*from) || !req.CreationDate.Before(*to)) {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRequestRepo) ListCompleted(_ context.Context, engineerID uint64, limit, offset uint64) ([]entities.Request, uint64, error) {
	var all []entities.Request
	for _, req := range r.store.requests {
		if req.IsAssignedTo(engineerID) && req.StatusID == constants.StatusDone {
			all = append(all, req)
		}
	}
	total := uint64(len(all))
	if offset >= total {
		return []entities.Request{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *fakeRequestRepo) Filter(_ context.Context, f entities.RequestFilter) ([]entities.Request, uint64, error) {
	var out []entities.Request
	for _, req := range r.store.requests {
		if f.EngineerID.Valid && !req.IsAssignedTo(uint64(f.EngineerID.Int64)) {
			continue
		}
		if len(f.StatusIDs) > 0 && !containsInt64(f.StatusIDs, req.StatusID) {
			continue
		}
		out = append(out, req)
	}
	return out, uint64(len(out)), nil
}

func (r *fakeRequestRepo) NullifyUserRefsInTx(_ context.Context, _ pgx.Tx, userID uint64) error {
	r.store.calls = append(r.store.calls, "request.nullify")
	for id, req := range r.store.requests {
		if req.IsAssignedTo(userID) {
			req.EngineerID = null.Int64{}
		}
		if req.OperatorID.Valid && req.OperatorID.Int64 == int64(userID) {
			req.OperatorID = null.Int64{}
		}
		r.store.requests[id] = req
	}
	return nil
}

func containsInt64(list []int64, v int64) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ---------- request history ----------

type fakeHistoryRepo struct{ store *memStore }

func (r *fakeHistoryRepo) CreateInTx(_ context.Context, _ pgx.Tx, h *entities.RequestHistory) error {
	if r.store.failHistory {
		return apperrors.NewStore("не удалось записать историю", errors.New("disk full"))
	}
	entry := *h
	entry.ID = r.store.id()
	entry.ChangedAt = testNow
	r.store.history = append(r.store.history, entry)
	return nil
}

func (r *fakeHistoryRepo) FindByRequestID(_ context.Context, requestID uint64) ([]entities.RequestHistoryItem, error) {
	var out []entities.RequestHistoryItem
	for _, h := range r.store.historyFor(requestID) {
		item := entities.RequestHistoryItem{RequestHistory: h}
		if h.ChangerID.Valid {
			if u, ok := r.store.users[uint64(h.ChangerID.Int64)]; ok {
				item.ChangerName = null.StringFrom(u.Name)
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeHistoryRepo) NullifyChangerInTx(_ context.Context, _ pgx.Tx, userID uint64) error {
	r.store.calls = append(r.store.calls, "history.nullify")
	for i, h := range r.store.history {
		if h.ChangerID.Valid && h.ChangerID.Int64 == int64(userID) {
			r.store.history[i].ChangerID = null.Int64{}
		}
	}
	return nil
}

// ---------- users ----------

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) CreateInTx(_ context.Context, _ pgx.Tx, u *entities.User) (uint64, error) {
	for _, existing := range r.store.users {
		if existing.Login == u.Login {
			return 0, apperrors.NewConflict("логин уже занят", nil)
		}
	}
	created := *u
	created.ID = r.store.id()
	r.store.users[created.ID] = created
	return created.ID, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.User, error) {
	u, ok := r.store.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("пользователь не найден")
	}
	return &u, nil
}

func (r *fakeUserRepo) FindByLogin(_ context.Context, login string) (*entities.User, error) {
	for _, u := range r.store.users {
		if u.Login == login {
			found := u
			return &found, nil
		}
	}
	return nil, apperrors.NewNotFound("пользователь не найден")
}

func (r *fakeUserRepo) List(_ context.Context, role *constants.Role, limit, offset uint64) ([]entities.User, uint64, error) {
	var out []entities.User
	for _, u := range r.store.users {
		if role == nil || u.RoleID == *role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, uint64(len(out)), nil
}

func (r *fakeUserRepo) UpdateInTx(_ context.Context, _ pgx.Tx, id uint64, fields map[string]interface{}) error {
	u, ok := r.store.users[id]
	if !ok {
		return apperrors.NewNotFound("пользователь не найден")
	}
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "login":
			u.Login = v.(string)
		case "passw":
			u.Password = v.(string)
		case "phone":
			u.Phone = v.(null.String)
		case "email":
			u.Email = v.(null.String)
		case "role_id":
			u.RoleID = constants.Role(v.(int))
		}
	}
	r.store.users[id] = u
	return nil
}

func (r *fakeUserRepo) DeleteInTx(_ context.Context, _ pgx.Tx, id uint64) error {
	r.store.calls = append(r.store.calls, "user.delete")
	if _, ok := r.store.users[id]; !ok {
		return apperrors.NewNotFound("пользователь не найден")
	}
	delete(r.store.users, id)
	return nil
}

// ---------- engineer profiles ----------

type fakeProfileRepo struct{ store *memStore }

func (r *fakeProfileRepo) CreateInTx(_ context.Context, _ pgx.Tx, userID uint64, schedule string) error {
	r.store.profiles[userID] = entities.EngineerProfile{ID: r.store.id(), UserID: userID, Balance: decimal.Zero, Schedule: schedule}
	return nil
}

func (r *fakeProfileRepo) FindByUserID(_ context.Context, _ pgx.Tx, userID uint64) (*entities.EngineerProfile, error) {
	p, ok := r.store.profiles[userID]
	if !ok {
		return nil, apperrors.NewNotFound("профиль инженера не найден")
	}
	return &p, nil
}

func (r *fakeProfileRepo) FindByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uint64) (*entities.EngineerProfile, error) {
	return r.FindByUserID(ctx, tx, userID)
}

func (r *fakeProfileRepo) UpdateBalanceInTx(_ context.Context, _ pgx.Tx, userID uint64, balance decimal.Decimal) error {
	p, ok := r.store.profiles[userID]
	if !ok {
		return apperrors.NewNotFound("профиль инженера не найден")
	}
	p.Balance = balance
	r.store.profiles[userID] = p
	return nil
}

func (r *fakeProfileRepo) UpdateScheduleInTx(_ context.Context, _ pgx.Tx, userID uint64, schedule string) error {
	p, ok := r.store.profiles[userID]
	if !ok {
		return apperrors.NewNotFound("профиль инженера не найден")
	}
	p.Schedule = schedule
	r.store.profiles[userID] = p
	return nil
}

func (r *fakeProfileRepo) DeleteByUserIDInTx(_ context.Context, _ pgx.Tx, userID uint64) error {
	r.store.calls = append(r.store.calls, "profile.delete")
	delete(r.store.profiles, userID)
	return nil
}

// ---------- balance history ----------

type fakeBalanceHistoryRepo struct{ store *memStore }

func (r *fakeBalanceHistoryRepo) CreateInTx(_ context.Context, _ pgx.Tx, h *entities.BalanceHistory) error {
	if r.store.failBalanceHistory {
		return apperrors.NewStore("не удалось записать историю баланса", errors.New("connection reset"))
	}
	entry := *h
	entry.ID = r.store.id()
	entry.ChangedAt = testNow
	r.store.balanceHistory = append(r.store.balanceHistory, entry)
	return nil
}

func (r *fakeBalanceHistoryRepo) FindByEngineerID(_ context.Context, engineerID uint64) ([]entities.BalanceHistory, error) {
	var out []entities.BalanceHistory
	for i := len(r.store.balanceHistory) - 1; i >= 0; i-- {
		if h := r.store.balanceHistory[i]; h.EngineerID == engineerID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeBalanceHistoryRepo) DeleteByEngineerIDInTx(_ context.Context, _ pgx.Tx, engineerID uint64) error {
	r.store.calls = append(r.store.calls, "balance_history.delete")
	kept := r.store.balanceHistory[:0]
	for _, h := range r.store.balanceHistory {
		if h.EngineerID != engineerID {
			kept = append(kept, h)
		}
	}
	r.store.balanceHistory = kept
	return nil
}

func (r *fakeBalanceHistoryRepo) NullifyAdminInTx(_ context.Context, _ pgx.Tx, adminID uint64) error {
	r.store.calls = append(r.store.calls, "balance_history.nullify")
	for i, h := range r.store.balanceHistory {
		if h.AdminID.Valid && h.AdminID.Int64 == int64(adminID) {
			r.store.balanceHistory[i].AdminID = null.Int64{}
		}
	}
	return nil
}

// ---------- dictionary / cache / bus ----------

type fakeDictionary struct {
	names map[int64]string
}

func newFakeDictionary() *fakeDictionary {
	return &fakeDictionary{names: map[int64]string{
		constants.StatusCreated:    "Создана",
		constants.StatusAssigned:   "Назначена",
		constants.StatusInProgress: "В работе",
		constants.StatusDone:       "Выполнена",
		constants.StatusDeleted:    "Удалена",
	}}
}

func (d *fakeDictionary) Statuses(context.Context) ([]entities.Status, error) {
	out := make([]entities.Status, 0, len(d.names))
	for id, name := range d.names {
		out = append(out, entities.Status{ID: id, Name: name})
	}
	return out, nil
}

func (d *fakeDictionary) Roles(context.Context) ([]entities.Role, error) { return nil, nil }

func (d *fakeDictionary) StatusNames(context.Context) map[int64]string {
	out := make(map[int64]string, len(d.names))
	for k, v := range d.names {
		out[k] = v
	}
	return out
}

type memCache struct {
	mu      sync.Mutex
	data    map[string]string
	ttl     map[string]time.Duration
	failGet error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	default:
		c.data[key] = fmt.Sprint(v)
	}
	c.ttl[key] = expiration
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return "", c.failGet
	}
	v, ok := c.data[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		delete(c.ttl, k)
	}
	return nil
}

func (c *memCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	fmt.Sscan(c.data[key], &n)
	n++
	c.data[key] = fmt.Sprint(n)
	return n, nil
}

func (c *memCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		return false, nil
	}
	c.ttl[key] = expiration
	return true, nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, event eventbus.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// ---------- wiring ----------

type testEnv struct {
	store    *memStore
	tx       *fakeTxManager
	bus      *recordingBus
	cache    *memCache
	requests *RequestService
	history  RequestHistoryServiceInterface
	balance  BalanceServiceInterface
	users    UserServiceInterface
}

const (
	engineerID  uint64 = 1
	engineer2ID uint64 = 2
	operatorID  uint64 = 3
	managerID   uint64 = 4
)

func newTestEnv() *testEnv {
	store := newMemStore()
	store.addUser(engineerID, constants.RoleEngineer, "Иван Инженеров")
	store.addUser(engineer2ID, constants.RoleEngineer, "Пётр Монтёров")
	store.addUser(operatorID, constants.RoleOperator, "Ольга Операторова")
	store.addUser(managerID, constants.RoleManager, "Мария Менеджерова")

	logger := zap.NewNop()
	tx := &fakeTxManager{store: store}
	bus := &recordingBus{}
	reqRepo := &fakeRequestRepo{store: store}
	histRepo := &fakeHistoryRepo{store: store}
	userRepo := &fakeUserRepo{store: store}
	profileRepo := &fakeProfileRepo{store: store}
	balanceRepo := &fakeBalanceHistoryRepo{store: store}

	requests := NewRequestService(tx, reqRepo, histRepo, userRepo, newFakeDictionary(), bus, logger).(*RequestService)
	requests.now = func() time.Time { return testNow }

	return &testEnv{
		store:    store,
		tx:       tx,
		bus:      bus,
		cache:    newMemCache(),
		requests: requests,
		history:  NewRequestHistoryService(reqRepo, histRepo, logger),
		balance:  NewBalanceService(tx, profileRepo, balanceRepo, bus, logger),
		users:    NewUserService(tx, userRepo, profileRepo, reqRepo, histRepo, balanceRepo, logger),
	}
}

// seedRequest кладёт заявку напрямую в хранилище.
func (e *testEnv) seedRequest(mutate func(r *entities.Request)) uint64 {
	req := entities.Request{
		ID:           e.store.id(),
		OperatorID:   null.Int64From(int64(operatorID)),
		StatusID:     constants.StatusCreated,
		Phone:        "+79001234567",
		Address:      "ул. Ленина, 1",
		Techniq:      "Стиральная машина",
		Description:  "Не сливает воду",
		CustomerName: "Анна Клиентова",
		CreationDate: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&req)
	}
	e.store.requests[req.ID] = req
	return req.ID
}
