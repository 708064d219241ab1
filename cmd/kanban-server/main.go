package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/kanbanhq/kanban"
	"github.com/kanbanhq/kanban/blobstore"
	"github.com/kanbanhq/kanban/cmd/kanban-server/config"
	"github.com/kanbanhq/kanban/mailer"
	"github.com/kanbanhq/kanban/middleware/tokenware"
)

// reminderInterval is how often the due-task sweep runs. The sweep itself is
// idempotent per calendar day from the recipient's point of view only if the
// interval stays daily.
const reminderInterval = 24 * time.Hour

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	bunDB    *bun.DB
	repo     kanban.RepositoryManager
	auth     kanban.Authenticator
	blobs    kanban.BlobStore
	notifier kanban.NotificationMailer
	reminder *kanban.Reminder
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("kanban"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		log.Fatal(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithMail(app); err != nil {
		log.Fatal(err)
	}

	if err := WithBlobStore(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithHTTPServer(app); err != nil {
		log.Fatal(err)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go RunReminderSweep(sweepCtx, app)

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*kanban.User)(nil))
	persistence.RegisterModel((*kanban.Board)(nil))
	persistence.RegisterModel((*kanban.BoardMember)(nil))
	persistence.RegisterModel((*kanban.Task)(nil))
	persistence.RegisterModel((*kanban.TaskAssignee)(nil))
	persistence.RegisterModel((*kanban.Attachment)(nil))

	client, err := persistence.New(pcfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(kanban.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}
	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = kanban.NewRepositoryManager(client.DB())
	app.repo.MustValidate()

	return nil
}

func WithMail(app *App) error {
	scfg := app.Config().GetSMTP()

	sender, err := mailer.New(mailer.Options{
		Host:     scfg.GetHost(),
		Port:     scfg.GetPort(),
		Username: scfg.GetUsername(),
		Password: scfg.GetPassword(),
		From:     app.Config().GetAuth().GetMailFrom(),
	})
	if err != nil {
		return err
	}

	app.notifier = mailer.NewNotifier(sender, app.Config().GetServer().GetBaseURL())
	return nil
}

func WithBlobStore(ctx context.Context, app *App) error {
	store := app.Config().GetStorage()

	blobs, err := blobstore.New(ctx, blobstore.Options{
		Bucket:       store.Bucket,
		Region:       store.Region,
		AccessKey:    store.AccessKey,
		SecretKey:    store.SecretKey,
		BaseEndpoint: store.BaseEndpoint,
	})
	if err != nil {
		return err
	}

	app.blobs = blobs
	return nil
}

func WithHTTPServer(app *App) error {
	acfg := app.Config().GetAuth()

	tokenService := kanban.NewTokenService(
		[]byte(acfg.GetSigningKey()),
		acfg.GetTokenExpiration(),
		acfg.GetHostname(),
		loggerAdapter{app.GetLogger("tokens")},
	)

	auther := kanban.NewAuthenticator(app.repo.Users(), tokenService).
		WithLogger(loggerAdapter{app.GetLogger("auth")})
	app.auth = auther

	userService := kanban.NewUserService(app.repo, tokenService).
		WithLogger(loggerAdapter{app.GetLogger("users")})
	boardService := kanban.NewBoardService(app.repo, app.blobs).
		WithLogger(loggerAdapter{app.GetLogger("boards")})
	taskService := kanban.NewTaskService(app.repo, app.blobs).
		WithLogger(loggerAdapter{app.GetLogger("tasks")})
	attachmentService := kanban.NewAttachmentService(app.repo, app.blobs, taskService).
		WithLogger(loggerAdapter{app.GetLogger("files")})

	app.reminder = kanban.NewReminder(taskService, app.repo.Users(), app.notifier).
		WithLogger(loggerAdapter{app.GetLogger("reminder")})

	controller := kanban.NewController(func(c *kanban.Controller) *kanban.Controller {
		c.Logger = loggerAdapter{app.GetLogger("api")}
		c.Auth = auther
		c.Users = userService
		c.Boards = boardService
		c.Tasks = taskService
		c.Attachments = attachmentService
		c.Register = kanban.NewRegisterUserHandler(app.repo, app.notifier, acfg).
			WithLogger(loggerAdapter{app.GetLogger("register")})
		c.Activate = kanban.NewActivateAccountHandler(app.repo).
			WithLogger(loggerAdapter{app.GetLogger("activate")})
		c.ResetInit = kanban.NewInitializePasswordResetHandler(app.repo, app.notifier, acfg).
			WithLogger(loggerAdapter{app.GetLogger("reset")})
		c.ResetFinalize = kanban.NewFinalizePasswordResetHandler(app.repo).
			WithLogger(loggerAdapter{app.GetLogger("reset")})
		return c
	})

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			AppName:       "kanban",
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(tokenware.New(tokenware.Config{
		Auth:   auther,
		Logger: loggerAdapter{app.GetLogger("tokenware")},
	}))

	kanban.RegisterRoutes(srv.Router(), controller)

	app.srv = srv
	return nil
}

// RunReminderSweep triggers the due-task sweep once per interval until the
// context is cancelled.
func RunReminderSweep(ctx context.Context, app *App) {
	ticker := time.NewTicker(reminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.reminder.Run(ctx); err != nil {
				app.GetLogger("reminder").Error("sweep failed", "error", err)
			}
		}
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

// loggerAdapter maps the printf-style kanban.Logger onto glog's structured
// logger.
type loggerAdapter struct {
	lgr glog.Logger
}

func (a loggerAdapter) Debug(format string, args ...any) { a.lgr.Debug(fmt.Sprintf(format, args...)) }
func (a loggerAdapter) Info(format string, args ...any)  { a.lgr.Info(fmt.Sprintf(format, args...)) }
func (a loggerAdapter) Warn(format string, args ...any)  { a.lgr.Warn(fmt.Sprintf(format, args...)) }
func (a loggerAdapter) Error(format string, args ...any) { a.lgr.Error(fmt.Sprintf(format, args...)) }
