package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"opsboard/internal/client/api"
	"opsboard/internal/client/board"
)

var errTaskIDRequired = errors.New("a task id is required")

func (a *App) cmdLogin(ctx context.Context) error {
	username, err := a.prompt("Username: ")
	if err != nil {
		return err
	}
	a.printf("Password: ")
	password, err := a.readPassword()
	if err != nil {
		return err
	}

	user, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	a.board.Initialize(ctx)
	a.printf("Signed in as %s.\n", user.Username)
	return nil
}

func (a *App) cmdLogout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	a.printf("Signed out.\n")
	return nil
}

func (a *App) cmdMe() {
	u := a.board.User()
	if u.ID == "" {
		a.printf("Not signed in.\n")
		return
	}
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	a.printf("%s (%s), role %s\n", name, u.Username, u.Role)
	if len(u.Teams) > 0 {
		a.printf("teams: %s\n", strings.Join(u.Teams, ", "))
	}
}

// cmdProfile prompts for the editable profile fields; an empty answer keeps
// the stored value.
func (a *App) cmdProfile(ctx context.Context) error {
	displayName, err := a.prompt("Display name (empty to keep): ")
	if err != nil {
		return err
	}
	headline, err := a.prompt("Headline (empty to keep): ")
	if err != nil {
		return err
	}
	bio, err := a.prompt("Bio (empty to keep): ")
	if err != nil {
		return err
	}

	var patch api.ProfilePatch
	if displayName != "" {
		patch.DisplayName = &displayName
	}
	if headline != "" {
		patch.Headline = &headline
	}
	if bio != "" {
		patch.Bio = &bio
	}

	user, err := a.client.UpdateProfile(ctx, patch)
	if err != nil {
		return err
	}
	a.board.Initialize(ctx)
	a.printf("profile updated for %s\n", user.Username)
	return nil
}

func (a *App) cmdPassword(ctx context.Context) error {
	a.printf("Current password: ")
	current, err := a.readPassword()
	if err != nil {
		return err
	}
	a.printf("New password: ")
	next, err := a.readPassword()
	if err != nil {
		return err
	}

	if err := a.client.ChangePassword(ctx, current, next); err != nil {
		return err
	}
	a.printf("password changed\n")
	return nil
}

func (a *App) cmdAvatar(ctx context.Context) error {
	filename, err := a.prompt("Image filename: ")
	if err != nil {
		return err
	}

	contentType := "image/png"
	if ext := strings.ToLower(filepath.Ext(filename)); ext == ".jpg" || ext == ".jpeg" {
		contentType = "image/jpeg"
	}

	up, err := a.client.RequestAvatarUpload(ctx, filename, contentType)
	if err != nil {
		return err
	}
	a.printf("upload your image with an HTTP PUT to:\n  %s\n", up.UploadURL)
	a.printf("it will be served from:\n  %s\n", up.AvatarURL)
	return nil
}

func (a *App) cmdBoard(ctx context.Context) error {
	a.board.Initialize(ctx)
	tasks := a.board.FilteredTasks()
	if len(tasks) == 0 {
		a.printf("No tasks.\n")
		return nil
	}
	for _, t := range tasks {
		a.printTask(t)
	}
	a.printf("%d of %d tasks shown\n", len(tasks), a.board.TotalTasks())
	return nil
}

func (a *App) cmdAvailable() {
	tasks := a.board.AvailableTasks()
	if len(tasks) == 0 {
		a.printf("Nothing available right now.\n")
		return
	}
	for _, t := range tasks {
		a.printTask(t)
	}
}

func (a *App) cmdPending() {
	pending := a.board.MyPendingTasks()
	if len(pending) == 0 {
		a.printf("Your queue is empty.\n")
		return
	}
	for _, p := range pending {
		a.printf("[%s] ", p.Kind)
		a.printTask(p.Task)
	}
}

func (a *App) cmdDone() {
	done := a.board.MyCompletedTasks()
	for _, t := range done {
		a.printTask(t)
	}
	a.printf("%d completed, %d points earned\n", len(done), a.board.EarnedTotal())
}

func (a *App) cmdSearch(keyword string) {
	a.board.SetKeyword(keyword)
	a.printf("keyword set to %q\n", keyword)
}

func (a *App) cmdSort(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sort <priority|deadline|bounty|newest>")
	}
	a.board.SetSortKey(ctx, args[0])
	return nil
}

func (a *App) cmdTransition(ctx context.Context, cmd string, args []string) error {
	if len(args) != 1 {
		return errTaskIDRequired
	}
	id := args[0]

	var err error
	switch cmd {
	case "claim":
		err = a.board.Claim(ctx, id)
	case "release":
		err = a.board.Release(ctx, id)
	case "submit":
		err = a.board.Submit(ctx, id)
	case "verify":
		err = a.board.Verify(ctx, id)
	case "reject":
		err = a.board.Reject(ctx, id)
	case "remove":
		err = a.board.RemoveTask(ctx, id)
	}
	if err != nil {
		return err
	}
	a.printf("%s %s: ok\n", cmd, id)
	return nil
}

func (a *App) promptDraft() (board.Draft, error) {
	var draft board.Draft

	title, err := a.prompt("Title: ")
	if err != nil {
		return draft, err
	}
	description, err := a.prompt("Description: ")
	if err != nil {
		return draft, err
	}
	rewardStr, err := a.prompt("Reward points: ")
	if err != nil {
		return draft, err
	}
	deadlineStr, err := a.prompt("Deadline (YYYY-MM-DD, empty for none): ")
	if err != nil {
		return draft, err
	}
	tagsStr, err := a.prompt("Tags (comma separated): ")
	if err != nil {
		return draft, err
	}

	draft.Title = title
	draft.DescriptionHTML = description
	if rewardStr != "" {
		reward, err := strconv.ParseInt(rewardStr, 10, 64)
		if err != nil {
			return draft, errors.New("reward must be a number")
		}
		draft.Reward = reward
	}
	if deadlineStr != "" {
		deadline, err := time.Parse("2006-01-02", deadlineStr)
		if err != nil {
			return draft, errors.New("deadline must look like 2026-12-31")
		}
		draft.Deadline = &deadline
	}
	for _, tag := range strings.Split(tagsStr, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			draft.Tags = append(draft.Tags, tag)
		}
	}
	return draft, nil
}

func (a *App) cmdPublish(ctx context.Context) error {
	draft, err := a.promptDraft()
	if err != nil {
		return err
	}
	if err := a.board.Publish(ctx, draft); err != nil {
		return err
	}
	a.printf("published %q\n", draft.Title)
	return nil
}

func (a *App) cmdEdit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errTaskIDRequired
	}
	draft, err := a.promptDraft()
	if err != nil {
		return err
	}
	if err := a.board.EditTask(ctx, args[0], draft); err != nil {
		return err
	}
	a.printf("edit %s: ok\n", args[0])
	return nil
}

func (a *App) cmdAccounts() {
	accounts := a.board.Accounts()
	if len(accounts) == 0 {
		a.printf("No accounts to show.\n")
		return
	}
	for _, acc := range accounts {
		a.printf("%s  %-20s %-8s %s\n", acc.ID, acc.Name, acc.Role, acc.Email)
	}
	a.printf("%d admins\n", a.board.AdminCount())
}

func (a *App) cmdToggleAdmin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("an account id is required")
	}
	role, err := a.board.ToggleAdmin(ctx, args[0])
	if err != nil {
		return err
	}
	a.printf("account %s role: %s\n", args[0], role)
	return nil
}

func (a *App) printTask(t board.Task) {
	line := t.ID + "  [" + string(t.Status) + "/" + t.Priority + "]  " + t.Title
	if t.Reward > 0 {
		line += "  (" + strconv.FormatInt(t.Reward, 10) + " pts)"
	}
	if t.Deadline != nil {
		line += "  due " + t.Deadline.Format("2006-01-02")
	}
	if t.Assignee != nil && t.Assignee.Name != "" {
		line += "  @" + t.Assignee.Name
	}
	a.printf("%s\n", line)
}
