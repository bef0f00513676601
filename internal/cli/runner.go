// Package cli implements the interactive shell over the engine's message
// surface: one session per shell run, one command per line.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/punchamoorthee/flightops/internal/session"
)

// Operations mirrors the engine surface the shell dispatches to.
type Operations interface {
	Login(ctx context.Context, sess *session.Session, username, password string) string
	CreateCustomer(ctx context.Context, username, password string, initAmount int64) string
	Search(ctx context.Context, sess *session.Session, origin, dest string, directOnly bool, day, n int) string
	Book(ctx context.Context, sess *session.Session, index int) string
	Reservations(ctx context.Context, sess *session.Session) string
	Cancel(ctx context.Context, sess *session.Session, reservationID int64) string
	Pay(ctx context.Context, sess *session.Session, reservationID int64) string
	Reset(ctx context.Context) error
}

// Runner holds the shell's session and dispatches parsed commands.
type Runner struct {
	engine Operations
	sess   *session.Session
}

func NewRunner(engine Operations) *Runner {
	return &Runner{engine: engine, sess: session.New()}
}

const usage = `Commands:
  create <username> <password> <initial amount>
  login <username> <password>
  search <origin city> <dest city> <direct: 0|1> <day> <count>
  book <itinerary number>
  reservations
  pay <reservation id>
  cancel <reservation id>
  reset
  quit`

// Execute runs one command line and returns its output plus whether the
// shell should exit. City names with spaces are double-quoted.
func (r *Runner) Execute(ctx context.Context, line string) (string, bool) {
	args, err := splitArgs(line)
	if err != nil {
		return "Error: unbalanced quotes", false
	}
	if len(args) == 0 {
		return "", false
	}

	switch strings.ToLower(args[0]) {
	case "create":
		if len(args) != 4 {
			return usage, false
		}
		amount, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return usage, false
		}
		return r.engine.CreateCustomer(ctx, args[1], args[2], amount), false

	case "login":
		if len(args) != 3 {
			return usage, false
		}
		return r.engine.Login(ctx, r.sess, args[1], args[2]), false

	case "search":
		if len(args) != 6 {
			return usage, false
		}
		direct := args[3] == "1"
		day, dayErr := strconv.Atoi(args[4])
		count, countErr := strconv.Atoi(args[5])
		if dayErr != nil || countErr != nil {
			return usage, false
		}
		return r.engine.Search(ctx, r.sess, args[1], args[2], direct, day, count), false

	case "book":
		if len(args) != 2 {
			return usage, false
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return usage, false
		}
		return r.engine.Book(ctx, r.sess, index), false

	case "reservations":
		return r.engine.Reservations(ctx, r.sess), false

	case "pay":
		if len(args) != 2 {
			return usage, false
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return usage, false
		}
		return r.engine.Pay(ctx, r.sess, id), false

	case "cancel":
		if len(args) != 2 {
			return usage, false
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return usage, false
		}
		return r.engine.Cancel(ctx, r.sess, id), false

	case "reset":
		if err := r.engine.Reset(ctx); err != nil {
			return "Reset failed", false
		}
		return "Reset complete", false

	case "quit", "exit":
		return "Goodbye", true

	default:
		return fmt.Sprintf("Unknown command: %s\n%s", args[0], usage), false
	}
}

// splitArgs tokenizes a command line, keeping double-quoted segments as
// single arguments so multi-word city names survive.
func splitArgs(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuotes := false
	hasToken := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			hasToken = true
		case r == ' ' && !inQuotes:
			if hasToken {
				args = append(args, current.String())
				current.Reset()
				hasToken = false
			}
		default:
			current.WriteRune(r)
			hasToken = true
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unbalanced quotes")
	}
	if hasToken {
		args = append(args, current.String())
	}
	return args, nil
}
