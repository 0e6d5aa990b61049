package users_test

import (
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// testLogger swallows everything; assertions never depend on log output.
type testLogger struct{}

func (testLogger) Debug(format string, args ...any) {}
func (testLogger) Info(format string, args ...any)  {}
func (testLogger) Warn(format string, args ...any)  {}
func (testLogger) Error(format string, args ...any) {}

// testConfig implements users.Config
type testConfig struct {
	signingKey string
	issuer     string
	timezone   string
	minAge     int
}

func (c testConfig) GetSigningKey() string { return c.signingKey }
func (c testConfig) GetIssuer() string     { return c.issuer }
func (c testConfig) GetTimezone() string   { return c.timezone }
func (c testConfig) GetMinAge() int        { return c.minAge }

// memoryUsers is an in-memory users.Users. The embedded Repository is
// never populated; tests only exercise the methods defined below.
type memoryUsers struct {
	repository.Repository[*users.User]

	mu      sync.Mutex
	records map[uuid.UUID]*users.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		records: map[uuid.UUID]*users.User{},
	}
}

func (s *memoryUsers) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memoryUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*users.User, error) {
	return s.GetByIDTx(ctx, nil, id, criteria...)
}

func (s *memoryUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.NewRecordNotFound()
	}
	record, ok := s.records[parsed]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	clone := *record
	return &clone, nil
}

func (s *memoryUsers) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	return s.GetByUsernameTx(ctx, nil, username)
}

func (s *memoryUsers) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Username == username {
			clone := *record
			return &clone, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (s *memoryUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.ExistsByUsernameTx(ctx, nil, username)
}

func (s *memoryUsers) ExistsByUsernameTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryUsers) Create(ctx context.Context, record *users.User, criteria ...repository.InsertCriteria) (*users.User, error) {
	return s.CreateTx(ctx, nil, record, criteria...)
}

func (s *memoryUsers) CreateTx(ctx context.Context, tx bun.IDB, record *users.User, criteria ...repository.InsertCriteria) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.BirthDate = users.DateOnly(record.BirthDate)

	clone := *record
	s.records[record.ID] = &clone
	return record, nil
}

func (s *memoryUsers) Update(ctx context.Context, record *users.User, criteria ...repository.UpdateCriteria) (*users.User, error) {
	return s.UpdateTx(ctx, nil, record, criteria...)
}

func (s *memoryUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *users.User, criteria ...repository.UpdateCriteria) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; !ok {
		return nil, repository.NewRecordNotFound()
	}
	record.BirthDate = users.DateOnly(record.BirthDate)

	clone := *record
	s.records[record.ID] = &clone
	return record, nil
}

func (s *memoryUsers) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return s.DeleteByIDTx(ctx, nil, id)
}

func (s *memoryUsers) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *memoryUsers) DeleteByUsername(ctx context.Context, username string) error {
	return s.DeleteByUsernameTx(ctx, nil, username)
}

func (s *memoryUsers) DeleteByUsernameTx(ctx context.Context, tx bun.IDB, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, record := range s.records {
		if record.Username == username {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *memoryUsers) FindAllByBirthDateBetween(ctx context.Context, from, to time.Time) ([]*users.User, error) {
	return s.FindAllByBirthDateBetweenTx(ctx, nil, from, to)
}

func (s *memoryUsers) FindAllByBirthDateBetweenTx(ctx context.Context, tx bun.IDB, from, to time.Time) ([]*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from = users.DateOnly(from)
	to = users.DateOnly(to)

	matches := []*users.User{}
	for _, record := range s.records {
		born := record.BornOn()
		if born.Before(from) || born.After(to) {
			continue
		}
		clone := *record
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].BirthDate.Before(matches[j].BirthDate)
	})
	return matches, nil
}

// memoryRepo is an in-memory users.RepositoryManager. RunInTx executes
// the callback directly; the fake store has no transactional state.
type memoryRepo struct {
	users *memoryUsers
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: newMemoryUsers()}
}

func (m *memoryRepo) Validate() error { return nil }

func (m *memoryRepo) MustValidate() {}

func (m *memoryRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *memoryRepo) Users() users.Users { return m.users }

// MockContext mocks router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) QueryValues(key string) []string {
	args := m.Called(key)
	return args.Get(0).([]string)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	args := m.Called(key, value)
	return args.Get(0).(map[string]any)
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	header, _ := args.Get(0).(*multipart.FileHeader)
	return header, args.Error(1)
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) IP() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) SendStream(r io.Reader) error {
	args := m.Called(r)
	return args.Error(0)
}
