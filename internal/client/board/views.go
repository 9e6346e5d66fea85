package board

import (
	"math"
	"slices"
	"sort"
	"strings"
)

// PendingKind tags why a task appears in the pending view.
type PendingKind string

const (
	// PendingExecute marks a task the current user holds and must finish.
	PendingExecute PendingKind = "execute"
	// PendingReview marks a submitted task awaiting the current user's
	// verification.
	PendingReview PendingKind = "review"
)

// PendingTask is a task in the my-pending view together with the reason it
// is there.
type PendingTask struct {
	Task
	Kind PendingKind
}

// Tasks returns the raw task snapshot in server order.
func (b *Board) Tasks() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.tasks)
}

// Accounts returns the account list snapshot.
func (b *Board) Accounts() []Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.accounts)
}

// FilteredTasks narrows the snapshot to tasks whose id, title or summary
// contains the keyword, case-insensitively. An empty keyword returns
// everything.
func (b *Board) FilteredTasks() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(b.keyword))
	if term == "" {
		return slices.Clone(b.tasks)
	}
	out := make([]Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		hay := strings.ToLower(t.ID + " " + t.Title + " " + t.Summary)
		if strings.Contains(hay, term) {
			out = append(out, t)
		}
	}
	return out
}

// AvailableTasks returns unclaimed tasks ordered by deadline, soonest
// first; tasks without a deadline sort last.
func (b *Board) AvailableTasks() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		if t.Status == StatusAvailable {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return deadlineRank(out[i]) < deadlineRank(out[j])
	})
	return out
}

// MyPendingTasks returns the current user's work queue: tasks they hold
// (execute) plus submitted tasks awaiting their review, ordered by
// deadline, falling back to last update, then to the end of the list.
func (b *Board) MyPendingTasks() []PendingTask {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.user.ID == "" {
		return nil
	}
	admin := b.user.IsAdmin()

	var out []PendingTask
	for _, t := range b.tasks {
		if t.Status == StatusClaimed && t.AssigneeID() == b.user.ID {
			out = append(out, PendingTask{Task: t, Kind: PendingExecute})
		}
	}
	for _, t := range b.tasks {
		if t.Status != StatusSubmitted {
			continue
		}
		if admin || t.OwnerID() == b.user.ID {
			out = append(out, PendingTask{Task: t, Kind: PendingReview})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return pendingRank(out[i].Task) < pendingRank(out[j].Task)
	})
	return out
}

// MyCompletedTasks returns the current user's completed history, most
// recently completed first.
func (b *Board) MyCompletedTasks() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := slices.Clone(b.completed)
	sort.SliceStable(out, func(i, j int) bool {
		return completionRank(out[i]) > completionRank(out[j])
	})
	return out
}

// EarnedTotal sums the rewards of the current user's completed tasks.
func (b *Board) EarnedTotal() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sum int64
	for _, t := range b.completed {
		sum += t.Reward
	}
	return sum
}

// AdminCount counts accounts holding the admin role.
func (b *Board) AdminCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, a := range b.accounts {
		if a.IsAdmin() {
			n++
		}
	}
	return n
}

func deadlineRank(t Task) int64 {
	if t.Deadline == nil {
		return math.MaxInt64
	}
	return t.Deadline.UnixMilli()
}

func pendingRank(t Task) int64 {
	if t.Deadline != nil {
		return t.Deadline.UnixMilli()
	}
	if !t.UpdatedAt.IsZero() {
		return t.UpdatedAt.UnixMilli()
	}
	return math.MaxInt64
}

func completionRank(t Task) int64 {
	if t.CompletedAt != nil {
		return t.CompletedAt.UnixMilli()
	}
	if !t.UpdatedAt.IsZero() {
		return t.UpdatedAt.UnixMilli()
	}
	return 0
}
