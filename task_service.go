package kanban

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TaskService handles the cards on a board. Every operation resolves the
// board first and applies the board rules; a task id from another board is
// NotFound, never a leak.
type TaskService struct {
	repo   RepositoryManager
	blobs  BlobStore
	policy Policy
	logger Logger
}

// NewTaskService returns a task service. The blob store cleans attachment
// objects when tasks are deleted.
func NewTaskService(repo RepositoryManager, blobs BlobStore) *TaskService {
	return &TaskService{
		repo:   repo,
		blobs:  blobs,
		policy: NewPolicy(),
		logger: defLogger{},
	}
}

func (s *TaskService) WithLogger(logger Logger) *TaskService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TaskInput carries the writable task fields. Assignees are usernames; any
// that are neither owner nor member of the board are silently dropped.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"due_date"`
	Assignees   []string   `json:"assignees"`
}

// Create adds a task to the board.
func (s *TaskService) Create(ctx context.Context, principal *User, boardID string, req TaskInput) (*Task, error) {
	board, err := s.boardForTaskOp(ctx, principal, boardID)
	if err != nil {
		return nil, err
	}

	category, ok := ParseTaskCategory(req.Category)
	if !ok {
		category = CategoryTodo
	}

	task := &Task{
		BoardID:     board.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		CreatorID:   principal.ID,
		DueDate:     req.DueDate,
	}

	assigneeIDs, err := s.filterAssignees(ctx, board, req.Assignees)
	if err != nil {
		return nil, err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if task, err = s.repo.Tasks().Create(ctx, tx, task); err != nil {
			return err
		}
		return s.repo.Tasks().SetAssignees(ctx, tx, task.ID, assigneeIDs)
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "task creation transaction failed")
	}

	return s.repo.Tasks().GetByID(ctx, task.ID.String())
}

// Get returns a task scoped to the board.
func (s *TaskService) Get(ctx context.Context, principal *User, boardID, taskID string) (*Task, error) {
	board, err := s.boardForTaskOp(ctx, principal, boardID)
	if err != nil {
		return nil, err
	}
	return s.taskOnBoard(ctx, board, taskID)
}

// Update rewrites a task's writable fields and replaces its assignee set.
func (s *TaskService) Update(ctx context.Context, principal *User, boardID, taskID string, req TaskInput) (*Task, error) {
	board, err := s.boardForTaskOp(ctx, principal, boardID)
	if err != nil {
		return nil, err
	}

	task, err := s.taskOnBoard(ctx, board, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		task.Title = req.Title
	}
	task.Description = req.Description
	task.DueDate = req.DueDate
	if category, ok := ParseTaskCategory(req.Category); ok {
		task.Category = category
	}

	assigneeIDs, err := s.filterAssignees(ctx, board, req.Assignees)
	if err != nil {
		return nil, err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.repo.Tasks().Update(ctx, tx, task); err != nil {
			return err
		}
		return s.repo.Tasks().SetAssignees(ctx, tx, task.ID, assigneeIDs)
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "task update transaction failed")
	}

	return s.repo.Tasks().GetByID(ctx, task.ID.String())
}

// Move changes a task's category, leaving everything else alone.
func (s *TaskService) Move(ctx context.Context, principal *User, boardID, taskID, category string) (*Task, error) {
	board, err := s.boardForTaskOp(ctx, principal, boardID)
	if err != nil {
		return nil, err
	}

	task, err := s.taskOnBoard(ctx, board, taskID)
	if err != nil {
		return nil, err
	}

	parsed, ok := ParseTaskCategory(category)
	if !ok {
		return nil, goerrors.New("unknown task category", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"category": category})
	}

	task.Category = parsed
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := s.repo.Tasks().Update(ctx, tx, task)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Tasks().GetByID(ctx, task.ID.String())
}

// Delete removes the task, its assignee links, and its attachment blobs.
func (s *TaskService) Delete(ctx context.Context, principal *User, boardID, taskID string) error {
	board, err := s.boardForTaskOp(ctx, principal, boardID)
	if err != nil {
		return err
	}

	task, err := s.taskOnBoard(ctx, board, taskID)
	if err != nil {
		return err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Tasks().Delete(ctx, tx, task)
	})
	if err != nil {
		return err
	}

	for _, att := range task.Attachments {
		if err := s.blobs.Delete(ctx, att.StorageKey); err != nil {
			s.logger.Error("failed to delete attachment object %q: %v", att.StorageKey, err)
		}
	}

	return nil
}

// TasksForUser lists the tasks assigned to the named user across boards.
func (s *TaskService) TasksForUser(ctx context.Context, principal *User, username string) ([]*Task, error) {
	if err := Require(principal, s.policy.CanListTasksForUser(principal, username)); err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.repo.Tasks().FindByAssignee(ctx, user.ID)
}

// DueOn returns every task due on the given calendar day, assignees loaded.
// Used by the reminder sweep; not exposed over HTTP.
func (s *TaskService) DueOn(ctx context.Context, day time.Time) ([]*Task, error) {
	return s.repo.Tasks().FindDueOn(ctx, day)
}

func (s *TaskService) boardForTaskOp(ctx context.Context, principal *User, boardID string) (*Board, error) {
	board, err := s.repo.Boards().GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := Require(principal, s.policy.CanTouchTasks(principal, board)); err != nil {
		return nil, err
	}
	return board, nil
}

// taskOnBoard loads the task and confirms it belongs to the board. A task id
// that exists on another board is NotFound here.
func (s *TaskService) taskOnBoard(ctx context.Context, board *Board, taskID string) (*Task, error) {
	task, err := s.repo.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.BoardID != board.ID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// filterAssignees resolves usernames to users and keeps only the board's
// owner and members. Unknown usernames and outsiders are dropped.
func (s *TaskService) filterAssignees(ctx context.Context, board *Board, usernames []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(usernames))
	seen := map[uuid.UUID]bool{}

	for _, username := range usernames {
		user, err := s.repo.Users().GetByUsername(ctx, username)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if !board.IsOwner(user) && !board.HasMember(user) {
			continue
		}
		if seen[user.ID] {
			continue
		}
		seen[user.ID] = true
		ids = append(ids, user.ID)
	}

	return ids, nil
}
