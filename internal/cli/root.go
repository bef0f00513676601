package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/punchamoorthee/flightops/internal/config"
	"github.com/punchamoorthee/flightops/internal/engine"
	"github.com/punchamoorthee/flightops/internal/ledger"
	"github.com/punchamoorthee/flightops/internal/service"
	"github.com/punchamoorthee/flightops/internal/store"
)

// NewRootCmd builds the shell command. The store is opened lazily at run
// time so --help works without a database.
func NewRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive flight booking shell",
		Long:  "Reads commands from stdin and runs them against the booking engine.\n\n" + usage,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.NewStore(cfg.DBSource)
			if err != nil {
				return err
			}
			defer st.Close()

			l := ledger.New()
			eng := engine.New(st, service.NewBookingService(st.Db, l), l)
			return Run(cmd.Context(), eng, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// Run drives the read-eval-print loop until quit or EOF.
func Run(ctx context.Context, engine Operations, in io.Reader, out io.Writer) error {
	runner := NewRunner(engine)
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		msg, quit := runner.Execute(ctx, scanner.Text())
		if msg != "" {
			fmt.Fprintln(out, msg)
		}
		if quit {
			return nil
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
