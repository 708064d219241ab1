package kanban

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Controller exposes the JSON API. Route handlers bind, validate, call the
// matching service, and map errors through WriteError; no business rules
// live here.
type Controller struct {
	Logger      Logger
	Auth        Authenticator
	Users       *UserService
	Boards      *BoardService
	Tasks       *TaskService
	Attachments *AttachmentService

	Register      *RegisterUserHandler
	Activate      *ActivateAccountHandler
	ResetInit     *InitializePasswordResetHandler
	ResetFinalize *FinalizePasswordResetHandler
}

// ControllerOption mutates the controller during construction.
type ControllerOption func(*Controller) *Controller

// NewController builds the API controller. It panics when a required
// collaborator is missing; wiring bugs should not survive startup.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auth == nil {
		panic("missing Authenticator in controller")
	}
	if c.Users == nil || c.Boards == nil || c.Tasks == nil || c.Attachments == nil {
		panic("missing services in controller")
	}
	if c.Register == nil || c.Activate == nil || c.ResetInit == nil || c.ResetFinalize == nil {
		panic("missing account command handlers in controller")
	}

	return c
}

// RegisterRoutes mounts the API under /api.
func RegisterRoutes[T any](app router.Router[T], c *Controller) {
	api := app.Group("/api")

	api.Post("/login", c.LoginPost).SetName("login.post")
	api.Post("/logout", c.LogoutPost).SetName("logout.post")

	api.Post("/users", c.UserRegister).SetName("users.register")
	api.Get("/users/me", c.UserMe).SetName("users.me")
	api.Put("/users/me", c.UserChangeDetails).SetName("users.me.put")
	api.Get("/users/findusers/:like", c.UserFind).SetName("users.find")
	api.Post("/users/resetPassword", c.PasswordResetInit).SetName("users.reset.init")
	api.Get("/users/:username/resetPassword", c.PasswordResetVerify).SetName("users.reset.verify")
	api.Post("/users/:username/resetPassword", c.PasswordResetFinalize).SetName("users.reset.finalize")
	api.Post("/users/:username/activate", c.UserActivate).SetName("users.activate")
	api.Delete("/users/:username", c.UserDelete).SetName("users.delete")
	api.Get("/users/:username/boards", c.UserBoards).SetName("users.boards")
	api.Get("/users/:username/cards", c.UserCards).SetName("users.cards")

	api.Get("/boards", c.BoardList).SetName("boards.list")
	api.Post("/boards", c.BoardCreate).SetName("boards.create")
	api.Get("/boards/:id", c.BoardGet).SetName("boards.get")
	api.Put("/boards/:id", c.BoardUpdate).SetName("boards.update")
	api.Delete("/boards/:id", c.BoardDelete).SetName("boards.delete")
	api.Put("/boards/:id/members", c.BoardAddMember).SetName("boards.members.add")
	api.Delete("/boards/:id/members/:username", c.BoardRemoveMember).SetName("boards.members.remove")
	api.Put("/boards/:id/owner", c.BoardChangeOwner).SetName("boards.owner")

	api.Post("/boards/:id/cards", c.CardCreate).SetName("cards.create")
	api.Get("/boards/:id/cards/:cardId", c.CardGet).SetName("cards.get")
	api.Put("/boards/:id/cards/:cardId", c.CardUpdate).SetName("cards.update")
	api.Put("/boards/:id/cards/:cardId/category", c.CardMove).SetName("cards.move")
	api.Delete("/boards/:id/cards/:cardId", c.CardDelete).SetName("cards.delete")

	api.Get("/boards/:id/cards/:cardId/files", c.FileList).SetName("files.list")
	api.Post("/boards/:id/cards/:cardId/files", c.FileUpload).SetName("files.upload")
	api.Get("/boards/:id/cards/:cardId/files/:fileId", c.FileDownload).SetName("files.download")
	api.Delete("/boards/:id/cards/:cardId/files/:fileId", c.FileDelete).SetName("files.delete")
}

func validationError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request payload").
		WithCode(goerrors.CodeBadRequest)
}

func bindError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
		WithCode(goerrors.CodeBadRequest)
}

// --- auth ---

// LoginRequest payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (c *Controller) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	token, err := c.Auth.Login(ctx.Context(), payload.Username, payload.Password)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	user, err := c.Auth.PrincipalFromToken(ctx.Context(), token)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	IssueTokenHeader(ctx, token)
	return ctx.JSON(router.StatusOK, userResponse(user))
}

// LogoutPost exists for API symmetry: sessions are stateless JWTs, so the
// server has nothing to revoke and clients simply drop the token.
func (c *Controller) LogoutPost(ctx router.Context) error {
	return ctx.NoContent(router.StatusNoContent)
}

// --- users ---

// RegisterRequest payload
type RegisterRequest struct {
	Username    string `json:"username"`
	Displayname string `json:"displayname"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Language    string `json:"language"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50), is.Alphanumeric),
		validation.Field(&r.Displayname, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Language, validation.In("DE", "EN")),
	)
}

func (c *Controller) UserRegister(ctx router.Context) error {
	payload := new(RegisterRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	msg := RegisterUserMessage{
		Username:    payload.Username,
		Displayname: payload.Displayname,
		Email:       payload.Email,
		Password:    payload.Password,
		Language:    payload.Language,
	}
	if err := c.Register.Execute(ctx.Context(), msg); err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.NoContent(router.StatusCreated)
}

func (c *Controller) UserMe(ctx router.Context) error {
	user, err := c.Users.Me(PrincipalFromContext(ctx))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, userResponse(user))
}

// ChangeDetailsRequest payload
type ChangeDetailsRequest struct {
	OldPassword string `json:"old_password"`
	Displayname string `json:"displayname"`
	Password    string `json:"password"`
	Language    string `json:"language"`
}

// Validate will run validation rules
func (r ChangeDetailsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.Displayname, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Length(8, 100)),
		validation.Field(&r.Language, validation.In("DE", "EN")),
	)
}

func (c *Controller) UserChangeDetails(ctx router.Context) error {
	payload := new(ChangeDetailsRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	user, token, err := c.Users.ChangeDetails(ctx.Context(), PrincipalFromContext(ctx), ChangeDetails{
		OldPassword: payload.OldPassword,
		Displayname: payload.Displayname,
		Password:    payload.Password,
		Language:    payload.Language,
	})
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	IssueTokenHeader(ctx, token)
	return ctx.JSON(router.StatusOK, userResponse(user))
}

func (c *Controller) UserFind(ctx router.Context) error {
	users, err := c.Users.FindUsersLike(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("like"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	return ctx.JSON(router.StatusOK, out)
}

// PasswordResetInitRequest payload
type PasswordResetInitRequest struct {
	Identifier string `json:"identifier"`
}

// Validate will run validation rules
func (r PasswordResetInitRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
	)
}

func (c *Controller) PasswordResetInit(ctx router.Context) error {
	payload := new(PasswordResetInitRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	msg := InitializePasswordResetMessage{Identifier: payload.Identifier}
	if err := c.ResetInit.Execute(ctx.Context(), msg); err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.NoContent(router.StatusAccepted)
}

func (c *Controller) PasswordResetVerify(ctx router.Context) error {
	username := ctx.Param("username")
	token := ctx.Query("token", "")

	if err := c.Users.VerifyResetToken(ctx.Context(), username, token); err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.NoContent(router.StatusOK)
}

// PasswordResetFinalizeRequest payload
type PasswordResetFinalizeRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r PasswordResetFinalizeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (c *Controller) PasswordResetFinalize(ctx router.Context) error {
	payload := new(PasswordResetFinalizeRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	msg := FinalizePasswordResetMessage{
		Username: ctx.Param("username"),
		Token:    payload.Token,
		Password: payload.Password,
	}
	if err := c.ResetFinalize.Execute(ctx.Context(), msg); err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.NoContent(router.StatusOK)
}

// ActivateRequest payload
type ActivateRequest struct {
	Token string `json:"token"`
}

// Validate will run validation rules
func (r ActivateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (c *Controller) UserActivate(ctx router.Context) error {
	payload := new(ActivateRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	msg := ActivateAccountMessage{
		Username: ctx.Param("username"),
		Token:    payload.Token,
	}
	if err := c.Activate.Execute(ctx.Context(), msg); err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.NoContent(router.StatusOK)
}

func (c *Controller) UserDelete(ctx router.Context) error {
	err := c.Users.DeleteUser(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("username"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.NoContent(router.StatusNoContent)
}

func (c *Controller) UserBoards(ctx router.Context) error {
	boards, err := c.Boards.ListForUser(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("username"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, boardResponses(boards))
}

func (c *Controller) UserCards(ctx router.Context) error {
	tasks, err := c.Tasks.TasksForUser(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("username"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, taskResponses(tasks))
}

// --- boards ---

func (c *Controller) BoardList(ctx router.Context) error {
	boards, err := c.Boards.ListAll(ctx.Context(), PrincipalFromContext(ctx))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, boardResponses(boards))
}

// BoardCreateRequest payload
type BoardCreateRequest struct {
	Name    string `json:"name"`
	Private bool   `json:"is_private"`
}

// Validate will run validation rules
func (r BoardCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

func (c *Controller) BoardCreate(ctx router.Context) error {
	payload := new(BoardCreateRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	board, err := c.Boards.Create(ctx.Context(), PrincipalFromContext(ctx), payload.Name, payload.Private)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusCreated, boardResponse(board))
}

func (c *Controller) BoardGet(ctx router.Context) error {
	board, err := c.Boards.Get(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, boardResponse(board))
}

// BoardUpdateRequest payload
type BoardUpdateRequest struct {
	Name    string `json:"name"`
	Private *bool  `json:"is_private"`
	Version int64  `json:"version"`
}

// Validate will run validation rules
func (r BoardUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.Version, validation.Min(int64(0))),
	)
}

func (c *Controller) BoardUpdate(ctx router.Context) error {
	payload := new(BoardUpdateRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	board, err := c.Boards.Update(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), BoardUpdate{
		Name:    payload.Name,
		Private: payload.Private,
		Version: payload.Version,
	})
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, boardResponse(board))
}

func (c *Controller) BoardDelete(ctx router.Context) error {
	if err := c.Boards.Delete(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id")); err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.NoContent(router.StatusNoContent)
}

// MemberRequest payload
type MemberRequest struct {
	Username string `json:"username"`
}

// Validate will run validation rules
func (r MemberRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
	)
}

func (c *Controller) BoardAddMember(ctx router.Context) error {
	payload := new(MemberRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	board, err := c.Boards.AddMember(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), payload.Username)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, boardResponse(board))
}

func (c *Controller) BoardRemoveMember(ctx router.Context) error {
	board, err := c.Boards.RemoveMember(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), ctx.Param("username"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, boardResponse(board))
}

func (c *Controller) BoardChangeOwner(ctx router.Context) error {
	payload := new(MemberRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	board, err := c.Boards.ChangeOwner(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), payload.Username)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, boardResponse(board))
}

// --- cards ---

// CardRequest payload
type CardRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"due_date"`
	Assignees   []string   `json:"assignees"`
}

// Validate will run validation rules
func (r CardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Category, validation.In("TODO", "DOING", "DONE")),
	)
}

func (r CardRequest) toInput() TaskInput {
	return TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		DueDate:     r.DueDate,
		Assignees:   r.Assignees,
	}
}

func (c *Controller) CardCreate(ctx router.Context) error {
	payload := new(CardRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	task, err := c.Tasks.Create(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), payload.toInput())
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusCreated, taskResponse(task))
}

func (c *Controller) CardGet(ctx router.Context) error {
	task, err := c.Tasks.Get(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), ctx.Param("cardId"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, taskResponse(task))
}

func (c *Controller) CardUpdate(ctx router.Context) error {
	payload := new(CardRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	task, err := c.Tasks.Update(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), ctx.Param("cardId"), payload.toInput())
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, taskResponse(task))
}

// CardMoveRequest payload
type CardMoveRequest struct {
	Category string `json:"category"`
}

// Validate will run validation rules
func (r CardMoveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Category, validation.Required, validation.In("TODO", "DOING", "DONE")),
	)
}

func (c *Controller) CardMove(ctx router.Context) error {
	payload := new(CardMoveRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	task, err := c.Tasks.Move(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), ctx.Param("cardId"), payload.Category)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, taskResponse(task))
}

func (c *Controller) CardDelete(ctx router.Context) error {
	if err := c.Tasks.Delete(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), ctx.Param("cardId")); err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.NoContent(router.StatusNoContent)
}

// --- files ---

// FileUploadRequest payload
type FileUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Validate will run validation rules
func (r FileUploadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Filename, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Size, validation.Min(int64(1))),
	)
}

func (c *Controller) FileList(ctx router.Context) error {
	files, err := c.Attachments.List(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), ctx.Param("cardId"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, attachmentResponses(files))
}

func (c *Controller) FileUpload(ctx router.Context) error {
	payload := new(FileUploadRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, c.Logger, bindError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, validationError(err))
	}

	pending, err := c.Attachments.Upload(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), ctx.Param("cardId"), AttachmentUpload{
		Filename:    payload.Filename,
		ContentType: payload.ContentType,
		Size:        payload.Size,
	})
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.JSON(router.StatusCreated, &FileUploadResponse{
		File:      attachmentResponse(pending.Attachment),
		UploadURL: pending.UploadURL,
	})
}

func (c *Controller) FileDownload(ctx router.Context) error {
	url, err := c.Attachments.Download(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), ctx.Param("cardId"), ctx.Param("fileId"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.JSON(router.StatusOK, &FileDownloadResponse{DownloadURL: url})
}

func (c *Controller) FileDelete(ctx router.Context) error {
	err := c.Attachments.Delete(ctx.Context(), PrincipalFromContext(ctx), ctx.Param("id"), ctx.Param("cardId"), ctx.Param("fileId"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}
	return ctx.NoContent(router.StatusNoContent)
}
