package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/devspaces/eventstream-go/terminal"
)

func newTerminalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terminal <space-id>",
		Short: "Attach to the shell of a running space",
		Args:  cobra.ExactArgs(1),
		RunE:  runTerminal,
	}
}

func runTerminal(cmd *cobra.Command, args []string) error {
	url, err := terminal.URL(viper.GetString("url"), args[0])
	if err != nil {
		return err
	}
	header := http.Header{}
	if token := viper.GetString("token"); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ctx := cmd.Context()
	session, err := terminal.Dial(ctx, url, &terminal.Options{Header: header})
	if err != nil {
		return err
	}
	defer session.Close()

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		defer term.Restore(fd, state)

		if cols, rows, err := term.GetSize(fd); err == nil {
			if err := session.Resize(cols, rows); err != nil {
				logger.Warn().Err(err).Msg("resize failed")
			}
		}
	}

	return session.Pipe(ctx, os.Stdin, os.Stdout)
}
