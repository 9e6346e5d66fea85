// Package cli implements the interactive OpsBoard terminal client: a small
// REPL over the board view model and the API gateway.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"opsboard/internal/client/api"
	"opsboard/internal/client/board"
	"opsboard/internal/client/creds"
	"opsboard/internal/logging"
)

// client is the API surface the CLI drives.
type client interface {
	board.Client
	Login(ctx context.Context, username, password string) (api.User, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, patch api.ProfilePatch) (api.User, error)
	ChangePassword(ctx context.Context, current, next string) error
	RequestAvatarUpload(ctx context.Context, filename, contentType string) (api.AvatarUpload, error)
}

var _ client = (*api.Gateway)(nil)

// App is the REPL. Reader, writer and the password prompt are injectable so
// tests can script a session.
type App struct {
	client client
	board  *board.Board
	creds  creds.Store
	logger logging.Logger

	in  *bufio.Reader
	out io.Writer

	readPassword func() (string, error)
}

func NewApp(c client, store creds.Store, logger logging.Logger) *App {
	return &App{
		client:       c,
		board:        board.NewBoard(c, logger),
		creds:        store,
		logger:       logger,
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		readPassword: readPasswordFromTerminal,
	}
}

// Run drives the REPL until EOF, "quit" or context cancellation.
func (a *App) Run(ctx context.Context) error {
	defer a.board.Close()

	a.printf("OpsBoard task board. Type 'help' for commands.\n")
	if a.creds.IsAuthenticated() {
		a.board.Initialize(ctx)
		a.printf("Signed in as %s.\n", a.board.User().Username)
	} else {
		a.printf("Not signed in. Use 'login' to start.\n")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		a.printf("> ")
		line, err := a.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		a.exec(ctx, cmd, args)
	}
}

func (a *App) exec(ctx context.Context, cmd string, args []string) {
	var err error
	switch cmd {
	case "help":
		a.printHelp()
	case "login":
		err = a.cmdLogin(ctx)
	case "logout":
		err = a.cmdLogout(ctx)
	case "me":
		a.cmdMe()
	case "profile":
		err = a.cmdProfile(ctx)
	case "password":
		err = a.cmdPassword(ctx)
	case "avatar":
		err = a.cmdAvatar(ctx)
	case "board":
		err = a.cmdBoard(ctx)
	case "available":
		a.cmdAvailable()
	case "pending":
		a.cmdPending()
	case "done":
		a.cmdDone()
	case "search":
		a.cmdSearch(strings.Join(args, " "))
	case "sort":
		err = a.cmdSort(ctx, args)
	case "claim", "release", "submit", "verify", "reject", "remove":
		err = a.cmdTransition(ctx, cmd, args)
	case "publish":
		err = a.cmdPublish(ctx)
	case "edit":
		err = a.cmdEdit(ctx, args)
	case "accounts":
		a.cmdAccounts()
	case "toggle-admin":
		err = a.cmdToggleAdmin(ctx, args)
	default:
		a.printf("unknown command %q, type 'help'\n", cmd)
	}
	if err != nil {
		a.printf("error: %v\n", err)
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) printHelp() {
	a.printf(`Commands:
  login / logout / me
  profile               update display name, headline and bio
  password              change your password
  avatar                request an avatar upload slot
  board                 list tasks (current keyword and sort applied)
  available             unclaimed tasks by deadline
  pending               your execute and review queue
  done                  your completed tasks and earned total
  search <keyword>      set the board keyword (fetch fires after a pause)
  sort <key>            re-sort immediately (priority|deadline|bounty|newest)
  claim|release|submit|verify|reject <id>
  publish               compose and publish a task (admin)
  edit <id>             rewrite a task's fields (admin)
  remove <id>           delete a task (admin)
  accounts              list accounts (admin)
  toggle-admin <id>     flip an account's admin role (admin)
  quit
`)
}
