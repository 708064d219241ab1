package kanban_test

import (
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/kanbanhq/kanban"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testConfig implements kanban.Config with fixed values.
type testConfig struct{}

func (testConfig) GetSigningKey() string                { return "test-signing-key" }
func (testConfig) GetHostname() string                  { return "kanban.test" }
func (testConfig) GetTokenExpiration() time.Duration    { return time.Hour }
func (testConfig) GetActivationTokenTTL() time.Duration { return time.Hour }
func (testConfig) GetResetTokenTTL() time.Duration      { return time.Hour }
func (testConfig) GetMailFrom() string                  { return "noreply@kanban.test" }

// stubPasswords skips bcrypt so service tests stay fast.
type stubPasswords struct {
	compareErr error
}

func (s stubPasswords) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (s stubPasswords) ComparePasswordAndHash(password, hash string) error {
	return s.compareErr
}

// MockRepositoryManager hands out the mocked stores. RunInTx invokes the
// closure directly; commit/rollback behavior is asserted through the store
// expectations instead.
type MockRepositoryManager struct {
	UsersRepo       *MockUsers
	BoardsRepo      *MockBoards
	TasksRepo       *MockTasks
	AttachmentsRepo *MockAttachments
}

func newMockRepo() *MockRepositoryManager {
	return &MockRepositoryManager{
		UsersRepo:       &MockUsers{},
		BoardsRepo:      &MockBoards{},
		TasksRepo:       &MockTasks{},
		AttachmentsRepo: &MockAttachments{},
	}
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() kanban.Users             { return m.UsersRepo }
func (m *MockRepositoryManager) Boards() kanban.Boards           { return m.BoardsRepo }
func (m *MockRepositoryManager) Tasks() kanban.Tasks             { return m.TasksRepo }
func (m *MockRepositoryManager) Attachments() kanban.Attachments { return m.AttachmentsRepo }
func (m *MockRepositoryManager) Validate() error                 { return nil }
func (m *MockRepositoryManager) MustValidate()                   {}

func (m *MockRepositoryManager) AssertExpectations(t mock.TestingT) {
	m.UsersRepo.AssertExpectations(t)
	m.BoardsRepo.AssertExpectations(t)
	m.TasksRepo.AssertExpectations(t)
	m.AttachmentsRepo.AssertExpectations(t)
}

// MockUsers implements kanban.Users
type MockUsers struct {
	mock.Mock
}

func userArg(args mock.Arguments, i int) *kanban.User {
	if v := args.Get(i); v != nil {
		return v.(*kanban.User)
	}
	return nil
}

func (m *MockUsers) GetByID(ctx context.Context, id string) (*kanban.User, error) {
	args := m.Called(ctx, id)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) GetByUsername(ctx context.Context, username string) (*kanban.User, error) {
	args := m.Called(ctx, username)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*kanban.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*kanban.User, error) {
	args := m.Called(ctx, identifier)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) FindLike(ctx context.Context, like string) ([]*kanban.User, error) {
	args := m.Called(ctx, like)
	if v := args.Get(0); v != nil {
		return v.([]*kanban.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *kanban.User) (*kanban.User, error) {
	args := m.Called(ctx, record)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *kanban.User) (*kanban.User, error) {
	args := m.Called(ctx, tx, record)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, record *kanban.User) (*kanban.User, error) {
	args := m.Called(ctx, record)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *kanban.User) (*kanban.User, error) {
	args := m.Called(ctx, tx, record)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) Delete(ctx context.Context, record *kanban.User) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockUsers) DeleteTx(ctx context.Context, tx bun.IDB, record *kanban.User) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

// MockBoards implements kanban.Boards
type MockBoards struct {
	mock.Mock
}

func boardArg(args mock.Arguments, i int) *kanban.Board {
	if v := args.Get(i); v != nil {
		return v.(*kanban.Board)
	}
	return nil
}

func (m *MockBoards) GetByID(ctx context.Context, id string) (*kanban.Board, error) {
	args := m.Called(ctx, id)
	return boardArg(args, 0), args.Error(1)
}

func (m *MockBoards) GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*kanban.Board, error) {
	args := m.Called(ctx, tx, id)
	return boardArg(args, 0), args.Error(1)
}

func (m *MockBoards) ListAll(ctx context.Context) ([]*kanban.Board, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*kanban.Board), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBoards) ListForUser(ctx context.Context, userID uuid.UUID) ([]*kanban.Board, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*kanban.Board), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBoards) CountOwnedBy(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockBoards) Create(ctx context.Context, record *kanban.Board) (*kanban.Board, error) {
	args := m.Called(ctx, record)
	return boardArg(args, 0), args.Error(1)
}

func (m *MockBoards) Update(ctx context.Context, record *kanban.Board) (*kanban.Board, error) {
	args := m.Called(ctx, record)
	return boardArg(args, 0), args.Error(1)
}

func (m *MockBoards) UpdateTx(ctx context.Context, tx bun.IDB, record *kanban.Board) (*kanban.Board, error) {
	args := m.Called(ctx, tx, record)
	return boardArg(args, 0), args.Error(1)
}

func (m *MockBoards) Delete(ctx context.Context, record *kanban.Board) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockBoards) DeleteTx(ctx context.Context, tx bun.IDB, record *kanban.Board) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

func (m *MockBoards) AddMember(ctx context.Context, tx bun.IDB, boardID, userID uuid.UUID) error {
	args := m.Called(ctx, tx, boardID, userID)
	return args.Error(0)
}

func (m *MockBoards) RemoveMember(ctx context.Context, tx bun.IDB, boardID, userID uuid.UUID) error {
	args := m.Called(ctx, tx, boardID, userID)
	return args.Error(0)
}

func (m *MockBoards) RemoveMemberEverywhere(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockTasks implements kanban.Tasks
type MockTasks struct {
	mock.Mock
}

func taskArg(args mock.Arguments, i int) *kanban.Task {
	if v := args.Get(i); v != nil {
		return v.(*kanban.Task)
	}
	return nil
}

func (m *MockTasks) GetByID(ctx context.Context, id string) (*kanban.Task, error) {
	args := m.Called(ctx, id)
	return taskArg(args, 0), args.Error(1)
}

func (m *MockTasks) GetForBoard(ctx context.Context, boardID uuid.UUID) ([]*kanban.Task, error) {
	args := m.Called(ctx, boardID)
	if v := args.Get(0); v != nil {
		return v.([]*kanban.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTasks) FindByAssignee(ctx context.Context, userID uuid.UUID) ([]*kanban.Task, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*kanban.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTasks) CountCreatedBy(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockTasks) FindDueOn(ctx context.Context, day time.Time) ([]*kanban.Task, error) {
	args := m.Called(ctx, day)
	if v := args.Get(0); v != nil {
		return v.([]*kanban.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTasks) Create(ctx context.Context, tx bun.IDB, record *kanban.Task) (*kanban.Task, error) {
	args := m.Called(ctx, tx, record)
	return taskArg(args, 0), args.Error(1)
}

func (m *MockTasks) Update(ctx context.Context, tx bun.IDB, record *kanban.Task) (*kanban.Task, error) {
	args := m.Called(ctx, tx, record)
	return taskArg(args, 0), args.Error(1)
}

func (m *MockTasks) Delete(ctx context.Context, tx bun.IDB, record *kanban.Task) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

func (m *MockTasks) DeleteForBoard(ctx context.Context, tx bun.IDB, boardID uuid.UUID) error {
	args := m.Called(ctx, tx, boardID)
	return args.Error(0)
}

func (m *MockTasks) SetAssignees(ctx context.Context, tx bun.IDB, taskID uuid.UUID, userIDs []uuid.UUID) error {
	args := m.Called(ctx, tx, taskID, userIDs)
	return args.Error(0)
}

func (m *MockTasks) RemoveAssigneeEverywhere(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockAttachments implements kanban.Attachments
type MockAttachments struct {
	mock.Mock
}

func attachmentArg(args mock.Arguments, i int) *kanban.Attachment {
	if v := args.Get(i); v != nil {
		return v.(*kanban.Attachment)
	}
	return nil
}

func (m *MockAttachments) GetByID(ctx context.Context, id string) (*kanban.Attachment, error) {
	args := m.Called(ctx, id)
	return attachmentArg(args, 0), args.Error(1)
}

func (m *MockAttachments) ListForTask(ctx context.Context, taskID uuid.UUID) ([]*kanban.Attachment, error) {
	args := m.Called(ctx, taskID)
	if v := args.Get(0); v != nil {
		return v.([]*kanban.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAttachments) ListForBoard(ctx context.Context, tx bun.IDB, boardID uuid.UUID) ([]*kanban.Attachment, error) {
	args := m.Called(ctx, tx, boardID)
	if v := args.Get(0); v != nil {
		return v.([]*kanban.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAttachments) Create(ctx context.Context, tx bun.IDB, record *kanban.Attachment) (*kanban.Attachment, error) {
	args := m.Called(ctx, tx, record)
	return attachmentArg(args, 0), args.Error(1)
}

func (m *MockAttachments) Delete(ctx context.Context, tx bun.IDB, record *kanban.Attachment) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

// MockBlobStore implements kanban.BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) PresignUpload(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) PresignDownload(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockNotificationMailer implements kanban.NotificationMailer
type MockNotificationMailer struct {
	mock.Mock
}

func (m *MockNotificationMailer) SendActivation(ctx context.Context, user *kanban.User, token string) error {
	args := m.Called(ctx, user, token)
	return args.Error(0)
}

func (m *MockNotificationMailer) SendPasswordReset(ctx context.Context, user *kanban.User, token string) error {
	args := m.Called(ctx, user, token)
	return args.Error(0)
}

func (m *MockNotificationMailer) SendTaskReminder(ctx context.Context, user *kanban.User, tasks []*kanban.Task) error {
	args := m.Called(ctx, user, tasks)
	return args.Error(0)
}

// MockTokenService implements kanban.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Generate(user *kanban.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(tokenString string) (*kanban.SessionClaims, error) {
	args := m.Called(tokenString)
	if v := args.Get(0); v != nil {
		return v.(*kanban.SessionClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAuthenticator implements kanban.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (*kanban.SessionObject, error) {
	args := m.Called(token)
	if v := args.Get(0); v != nil {
		return v.(*kanban.SessionObject), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) PrincipalFromSession(ctx context.Context, session *kanban.SessionObject) (*kanban.User, error) {
	args := m.Called(ctx, session)
	return userArg(args, 0), args.Error(1)
}

func (m *MockAuthenticator) PrincipalFromToken(ctx context.Context, token string) (*kanban.User, error) {
	args := m.Called(ctx, token)
	return userArg(args, 0), args.Error(1)
}

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
	if v := args.Get(0); v != nil {
		return v.([]string)
	}
	return nil
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

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	if v := args.Get(0); v != nil {
		return v.(*multipart.FileHeader), args.Error(1)
	}
	return nil, args.Error(1)
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

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	args := m.Called(key, value)
	if v := args.Get(0); v != nil {
		return v.(map[string]any)
	}
	return nil
}

func (m *MockContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) SendStream(r io.Reader) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.(map[string]string)
	}
	return nil
}
