package board

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"opsboard/internal/client/api"
	"opsboard/internal/logging"
)

// Client is the slice of the API gateway the board consumes.
type Client interface {
	Me(ctx context.Context) (api.User, error)
	ListTasks(ctx context.Context, p api.TaskListParams) (api.TaskPage, error)
	ListAccounts(ctx context.Context, p api.AccountListParams) (api.UserPage, error)
	ToggleAdmin(ctx context.Context, id string, grant bool) (api.User, error)

	CreateTask(ctx context.Context, draft api.TaskDraft) (api.Task, error)
	UpdateTask(ctx context.Context, id string, patch api.TaskPatch) (api.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ClaimTask(ctx context.Context, id string) (api.Task, error)
	ReleaseTask(ctx context.Context, id string) (api.Task, error)
	SubmitTask(ctx context.Context, id string) (api.Task, error)
	VerifyTask(ctx context.Context, id string) (api.Task, error)
	RejectTask(ctx context.Context, id string) (api.Task, error)
}

var _ Client = (*api.Gateway)(nil)

// ErrUnknownTask is returned when an operation references a task id that is
// not in the board's current snapshot.
var ErrUnknownTask = errors.New("task not found on the board")

// DefaultSearchQuiet is how long keyword input must stay unchanged before a
// search fetch fires.
const DefaultSearchQuiet = 350 * time.Millisecond

const (
	defaultSortKey    = "priority"
	completedPageSize = 100
	accountsPageSize  = 50
)

// Board is the task board view model. It owns the current collections and
// the current-user context, refreshes them from the server and derives the
// partitioned views the UI renders. All methods are safe for concurrent
// use.
type Board struct {
	client Client
	engine *Engine
	logger logging.Logger
	search *debouncer

	mu         sync.Mutex
	user       CurrentUser
	tasks      []Task
	totalTasks int
	completed  []Task
	accounts   []Account

	keyword string
	sortKey string

	loadingTasks    bool
	loadingUser     bool
	loadingAccounts bool
}

func NewBoard(client Client, logger logging.Logger) *Board {
	return &Board{
		client:  client,
		engine:  NewEngine(client),
		logger:  logger,
		search:  newDebouncer(DefaultSearchQuiet),
		sortKey: defaultSortKey,
	}
}

// Initialize hydrates the current user and the task list, then the account
// list (admins only) and the completed history. Load failures are logged
// and leave the previous snapshot in place.
func (b *Board) Initialize(ctx context.Context) {
	b.loadCurrentUser(ctx)
	b.loadTasks(ctx)
	b.loadAccounts(ctx)
	b.loadCompleted(ctx)
}

// Close cancels any pending debounced fetch.
func (b *Board) Close() { b.search.Stop() }

// SetKeyword records the search term and schedules a re-fetch once typing
// pauses. Each edit cancels and replaces the previously pending fetch.
func (b *Board) SetKeyword(keyword string) {
	b.mu.Lock()
	b.keyword = keyword
	b.mu.Unlock()

	b.search.Schedule(func() {
		b.loadTasks(context.Background())
	})
}

// SetSortKey re-fetches immediately, without debounce.
func (b *Board) SetSortKey(ctx context.Context, key string) {
	b.mu.Lock()
	b.sortKey = key
	b.mu.Unlock()

	b.loadTasks(ctx)
}

func (b *Board) Keyword() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keyword
}

func (b *Board) SortKey() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortKey
}

// User returns a snapshot of the current-user context.
func (b *Board) User() CurrentUser {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user
}

func (b *Board) IsAdmin() bool { return b.User().IsAdmin() }

func (b *Board) TotalTasks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalTasks
}

// Loading reports which collections have a fetch in flight.
func (b *Board) Loading() (tasks, user, accounts bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadingTasks, b.loadingUser, b.loadingAccounts
}

// Claim takes an available task for the current user.
func (b *Board) Claim(ctx context.Context, taskID string) error {
	return b.transition(ctx, taskID, b.engine.Claim, false)
}

// Release puts one of the current user's claimed tasks back on the board.
func (b *Board) Release(ctx context.Context, taskID string) error {
	return b.transition(ctx, taskID, b.engine.Release, false)
}

// Submit hands one of the current user's claimed tasks over for review.
func (b *Board) Submit(ctx context.Context, taskID string) error {
	return b.transition(ctx, taskID, b.engine.Submit, false)
}

// Verify accepts a submitted task as complete and refreshes the completed
// history along with the board.
func (b *Board) Verify(ctx context.Context, taskID string) error {
	return b.transition(ctx, taskID, b.engine.Verify, true)
}

// Reject sends a submitted task back to its assignee.
func (b *Board) Reject(ctx context.Context, taskID string) error {
	return b.transition(ctx, taskID, b.engine.Reject, false)
}

// Publish creates a new task on the board.
func (b *Board) Publish(ctx context.Context, draft Draft) error {
	if err := b.engine.Publish(ctx, draft, b.User()); err != nil {
		return err
	}
	b.loadTasks(ctx)
	return nil
}

// EditTask overwrites a task's editable fields.
func (b *Board) EditTask(ctx context.Context, taskID string, draft Draft) error {
	task, ok := b.taskByID(taskID)
	if !ok {
		return ErrUnknownTask
	}
	if err := b.engine.Edit(ctx, task, draft, b.User()); err != nil {
		return err
	}
	b.loadTasks(ctx)
	return nil
}

// RemoveTask deletes a task and refreshes both the board and the completed
// history.
func (b *Board) RemoveTask(ctx context.Context, taskID string) error {
	task, ok := b.taskByID(taskID)
	if !ok {
		return ErrUnknownTask
	}
	if err := b.engine.Delete(ctx, task, b.User()); err != nil {
		return err
	}
	b.loadTasks(ctx)
	b.loadCompleted(ctx)
	return nil
}

func (b *Board) transition(ctx context.Context, taskID string, op func(context.Context, Task, CurrentUser) error, refreshCompleted bool) error {
	task, ok := b.taskByID(taskID)
	if !ok {
		return ErrUnknownTask
	}
	if err := op(ctx, task, b.User()); err != nil {
		return err
	}
	b.loadTasks(ctx)
	if refreshCompleted {
		b.loadCompleted(ctx)
	}
	return nil
}

func (b *Board) taskByID(id string) (Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

func (b *Board) loadCurrentUser(ctx context.Context) {
	b.mu.Lock()
	b.loadingUser = true
	b.mu.Unlock()

	item, err := b.client.Me(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadingUser = false
	if err != nil {
		b.logger.Error(ctx, "could not load current user", "error", err)
		return
	}
	b.user.HydrateFrom(item)
}

func (b *Board) loadTasks(ctx context.Context) {
	b.mu.Lock()
	b.loadingTasks = true
	params := api.TaskListParams{
		Keyword: strings.TrimSpace(b.keyword),
		Sort:    b.sortKey,
	}
	b.mu.Unlock()

	page, err := b.client.ListTasks(ctx, params)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadingTasks = false
	if err != nil {
		b.logger.Error(ctx, "could not load tasks", "error", err)
		return
	}
	tasks := make([]Task, 0, len(page.Items))
	for _, item := range page.Items {
		tasks = append(tasks, TaskFromAPI(item))
	}
	// overlapping fetches are not ordered, the last response to arrive wins
	b.tasks = tasks
	b.totalTasks = page.Total
}

func (b *Board) loadCompleted(ctx context.Context) {
	b.mu.Lock()
	signedIn := b.user.ID != ""
	if !signedIn {
		b.completed = nil
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	page, err := b.client.ListTasks(ctx, api.TaskListParams{
		Status:   string(StatusCompleted),
		Assignee: "me",
		PageSize: completedPageSize,
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.logger.Error(ctx, "could not load completed tasks", "error", err)
		return
	}
	completed := make([]Task, 0, len(page.Items))
	for _, item := range page.Items {
		completed = append(completed, TaskFromAPI(item))
	}
	b.completed = completed
}

func (b *Board) loadAccounts(ctx context.Context) {
	b.mu.Lock()
	if !b.user.IsAdmin() {
		b.accounts = nil
		b.mu.Unlock()
		return
	}
	b.loadingAccounts = true
	b.mu.Unlock()

	page, err := b.client.ListAccounts(ctx, api.AccountListParams{Page: 1, PageSize: accountsPageSize})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadingAccounts = false
	if err != nil {
		b.logger.Error(ctx, "could not load accounts", "error", err)
		return
	}
	accounts := make([]Account, 0, len(page.Items))
	for _, item := range page.Items {
		accounts = append(accounts, AccountFromAPI(item))
	}
	b.accounts = accounts
}
