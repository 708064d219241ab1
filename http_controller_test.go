package kanban_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kanbanhq/kanban"
)

func newTestController(repo *MockRepositoryManager, auth kanban.Authenticator, mailer *MockNotificationMailer) *kanban.Controller {
	blobs := &MockBlobStore{}
	tasks := kanban.NewTaskService(repo, blobs).WithLogger(testLogger{})

	return &kanban.Controller{
		Logger:      testLogger{},
		Auth:        auth,
		Users:       kanban.NewUserService(repo, &MockTokenService{}).WithLogger(testLogger{}),
		Boards:      kanban.NewBoardService(repo, blobs).WithLogger(testLogger{}),
		Tasks:       tasks,
		Attachments: kanban.NewAttachmentService(repo, blobs, tasks).WithLogger(testLogger{}),

		Register:      kanban.NewRegisterUserHandler(repo, mailer, testConfig{}).WithLogger(testLogger{}),
		Activate:      kanban.NewActivateAccountHandler(repo).WithLogger(testLogger{}),
		ResetInit:     kanban.NewInitializePasswordResetHandler(repo, mailer, testConfig{}).WithLogger(testLogger{}),
		ResetFinalize: kanban.NewFinalizePasswordResetHandler(repo).WithLogger(testLogger{}),
	}
}

func TestNewControllerPanicsOnMissingCollaborators(t *testing.T) {
	assert.Panics(t, func() {
		kanban.NewController()
	})
}

func TestControllerLoginPost(t *testing.T) {
	t.Run("valid credentials return the user and the token header", func(t *testing.T) {
		auth := &MockAuthenticator{}
		user := testUser()

		auth.On("Login", mock.Anything, "gordon", "melmac-is-home").Return("session-token", nil).Once()
		auth.On("PrincipalFromToken", mock.Anything, "session-token").Return(user, nil).Once()

		controller := newTestController(newMockRepo(), auth, &MockNotificationMailer{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).
			Run(func(args mock.Arguments) {
				payload := args.Get(0).(*kanban.LoginRequest)
				payload.Username = "gordon"
				payload.Password = "melmac-is-home"
			}).
			Return(nil).Once()
		ctx.On("Context").Return(context.Background())
		ctx.On("SetHeader", "Cookie", "token=session-token").Once()

		var body *kanban.UserResponse
		ctx.On("JSON", 200, mock.Anything).
			Run(func(args mock.Arguments) {
				body = args.Get(1).(*kanban.UserResponse)
			}).
			Return(nil).Once()

		require.NoError(t, controller.LoginPost(ctx))

		require.NotNil(t, body)
		assert.Equal(t, "gordon", body.Username)

		ctx.AssertExpectations(t)
		auth.AssertExpectations(t)
	})

	t.Run("bad credentials return 401", func(t *testing.T) {
		auth := &MockAuthenticator{}
		auth.On("Login", mock.Anything, "gordon", "wrong").Return("", kanban.ErrUnauthenticated).Once()

		controller := newTestController(newMockRepo(), auth, &MockNotificationMailer{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).
			Run(func(args mock.Arguments) {
				payload := args.Get(0).(*kanban.LoginRequest)
				payload.Username = "gordon"
				payload.Password = "wrong"
			}).
			Return(nil).Once()
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", 401, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.LoginPost(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("missing fields return 400 before authentication", func(t *testing.T) {
		auth := &MockAuthenticator{}
		controller := newTestController(newMockRepo(), auth, &MockNotificationMailer{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Once()
		ctx.On("JSON", 400, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.LoginPost(ctx))

		auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestControllerLogoutPost(t *testing.T) {
	controller := newTestController(newMockRepo(), &MockAuthenticator{}, &MockNotificationMailer{})

	ctx := &MockContext{}
	ctx.On("NoContent", 204).Return(nil).Once()

	require.NoError(t, controller.LogoutPost(ctx))
	ctx.AssertExpectations(t)
}

func TestControllerUserMe(t *testing.T) {
	controller := newTestController(newMockRepo(), &MockAuthenticator{}, &MockNotificationMailer{})

	t.Run("authenticated", func(t *testing.T) {
		user := testUser()

		ctx := &MockContext{}
		ctx.On("Locals", kanban.PrincipalContextKey).Return(user)

		var body *kanban.UserResponse
		ctx.On("JSON", 200, mock.Anything).
			Run(func(args mock.Arguments) {
				body = args.Get(1).(*kanban.UserResponse)
			}).
			Return(nil).Once()

		require.NoError(t, controller.UserMe(ctx))
		require.NotNil(t, body)
		assert.Equal(t, "gordon", body.Username)
	})

	t.Run("anonymous gets 401", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", kanban.PrincipalContextKey).Return(nil)
		ctx.On("JSON", 401, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.UserMe(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestControllerUserRegister(t *testing.T) {
	t.Run("valid payload creates the account", func(t *testing.T) {
		repo := newMockRepo()
		mailer := &MockNotificationMailer{}

		repo.UsersRepo.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
			Return(testUser(), nil).Once()
		mailer.On("SendActivation", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		controller := newTestController(repo, &MockAuthenticator{}, mailer)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).
			Run(func(args mock.Arguments) {
				payload := args.Get(0).(*kanban.RegisterRequest)
				payload.Username = "gordon"
				payload.Displayname = "Gordon Shumway"
				payload.Email = "gordon@example.com"
				payload.Password = "melmac-is-home"
			}).
			Return(nil).Once()
		ctx.On("Context").Return(context.Background())
		ctx.On("NoContent", 201).Return(nil).Once()

		require.NoError(t, controller.UserRegister(ctx))

		ctx.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("short password is rejected with 400", func(t *testing.T) {
		repo := newMockRepo()
		controller := newTestController(repo, &MockAuthenticator{}, &MockNotificationMailer{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).
			Run(func(args mock.Arguments) {
				payload := args.Get(0).(*kanban.RegisterRequest)
				payload.Username = "gordon"
				payload.Displayname = "Gordon Shumway"
				payload.Email = "gordon@example.com"
				payload.Password = "short"
			}).
			Return(nil).Once()
		ctx.On("JSON", 400, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.UserRegister(ctx))

		repo.UsersRepo.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestControllerBoardGet(t *testing.T) {
	fix := newBoardFixture()
	repo := newMockRepo()
	repo.BoardsRepo.On("GetByID", mock.Anything, fix.board.ID.String()).Return(fix.board, nil).Once()

	controller := newTestController(repo, &MockAuthenticator{}, &MockNotificationMailer{})

	ctx := &MockContext{}
	ctx.On("Locals", kanban.PrincipalContextKey).Return(fix.member)
	ctx.On("Context").Return(context.Background())
	ctx.On("Param", "id").Return(fix.board.ID.String())

	var body *kanban.BoardResponse
	ctx.On("JSON", 200, mock.Anything).
		Run(func(args mock.Arguments) {
			body = args.Get(1).(*kanban.BoardResponse)
		}).
		Return(nil).Once()

	require.NoError(t, controller.BoardGet(ctx))

	require.NotNil(t, body)
	assert.Equal(t, fix.board.ID.String(), body.ID)
	assert.Equal(t, "roadmap", body.Name)
	require.Len(t, body.Members, 1)
	assert.Equal(t, "member", body.Members[0].Username)
}

func TestControllerCardMove(t *testing.T) {
	t.Run("unknown category fails validation with 400", func(t *testing.T) {
		repo := newMockRepo()
		controller := newTestController(repo, &MockAuthenticator{}, &MockNotificationMailer{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).
			Run(func(args mock.Arguments) {
				payload := args.Get(0).(*kanban.CardMoveRequest)
				payload.Category = "LIMBO"
			}).
			Return(nil).Once()
		ctx.On("JSON", 400, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.CardMove(ctx))

		repo.TasksRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("moves the card", func(t *testing.T) {
		fix := newBoardFixture()
		repo := newMockRepo()
		task := taskOn(fix.board)

		repo.BoardsRepo.On("GetByID", mock.Anything, fix.board.ID.String()).Return(fix.board, nil).Once()
		repo.TasksRepo.On("GetByID", mock.Anything, task.ID.String()).Return(task, nil)
		repo.TasksRepo.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(task, nil).Once()

		controller := newTestController(repo, &MockAuthenticator{}, &MockNotificationMailer{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).
			Run(func(args mock.Arguments) {
				payload := args.Get(0).(*kanban.CardMoveRequest)
				payload.Category = "DONE"
			}).
			Return(nil).Once()
		ctx.On("Context").Return(context.Background())
		ctx.On("Locals", kanban.PrincipalContextKey).Return(fix.member)
		ctx.On("Param", "id").Return(fix.board.ID.String())
		ctx.On("Param", "cardId").Return(task.ID.String())

		var body *kanban.TaskResponse
		ctx.On("JSON", 200, mock.Anything).
			Run(func(args mock.Arguments) {
				body = args.Get(1).(*kanban.TaskResponse)
			}).
			Return(nil).Once()

		require.NoError(t, controller.CardMove(ctx))

		require.NotNil(t, body)
		assert.Equal(t, kanban.CategoryDone, body.Category)
	})
}

func TestControllerFileDownload(t *testing.T) {
	fix := newBoardFixture()
	repo := newMockRepo()
	task := taskOn(fix.board)

	record := &kanban.Attachment{TaskID: task.ID, StorageKey: "boards/b/tasks/t/a1"}

	repo.BoardsRepo.On("GetByID", mock.Anything, fix.board.ID.String()).Return(fix.board, nil).Once()
	repo.TasksRepo.On("GetByID", mock.Anything, task.ID.String()).Return(task, nil).Once()
	repo.AttachmentsRepo.On("GetByID", mock.Anything, record.ID.String()).Return(record, nil).Once()

	blobs := &MockBlobStore{}
	blobs.On("PresignDownload", mock.Anything, "boards/b/tasks/t/a1").Return("https://blobs.kanban.test/get", nil).Once()

	tasks := kanban.NewTaskService(repo, blobs).WithLogger(testLogger{})
	controller := newTestController(repo, &MockAuthenticator{}, &MockNotificationMailer{})
	controller.Tasks = tasks
	controller.Attachments = kanban.NewAttachmentService(repo, blobs, tasks).WithLogger(testLogger{})

	ctx := &MockContext{}
	ctx.On("Locals", kanban.PrincipalContextKey).Return(fix.owner)
	ctx.On("Context").Return(context.Background())
	ctx.On("Param", "id").Return(fix.board.ID.String())
	ctx.On("Param", "cardId").Return(task.ID.String())
	ctx.On("Param", "fileId").Return(record.ID.String())

	var body *kanban.FileDownloadResponse
	ctx.On("JSON", 200, mock.Anything).
		Run(func(args mock.Arguments) {
			body = args.Get(1).(*kanban.FileDownloadResponse)
		}).
		Return(nil).Once()

	require.NoError(t, controller.FileDownload(ctx))

	require.NotNil(t, body)
	assert.Equal(t, "https://blobs.kanban.test/get", body.DownloadURL)
}
