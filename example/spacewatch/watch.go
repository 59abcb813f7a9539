package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	eventstream "github.com/devspaces/eventstream-go"
	"github.com/devspaces/eventstream-go/api"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [pattern...]",
		Short: "Print pushed events matching the given patterns",
		Long: `Print every pushed event whose type matches one of the patterns.
A pattern is an exact type such as spaces:changed or a namespace wildcard such
as volumes:*. Without patterns every known namespace is printed.`,
		Example: `  spacewatch watch spaces:* templates:changed`,
		RunE:    runWatch,
	}
	cmd.Flags().Bool("json", false, "print one JSON object per event")
	return cmd
}

var defaultPatterns = []string{
	"spaces:*", "templates:*", "volumes:*", "users:*", "roles:*",
	"groups:*", "scripts:*", "auditlogs:*", api.EventType_Reconnected,
}

func runWatch(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	patterns := args
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}

	ctx := cmd.Context()
	signedOut := make(chan string, 1)
	clientEvents := make(chan api.ClientEvent, 16)
	client, err := eventstream.NewClient(&eventstream.Options{
		BaseURL:            viper.GetString("url"),
		Token:              viper.GetString("token"),
		ClientEventHandler: clientEvents,
		OnAuthRequired: func(signOutURL string) {
			signedOut <- signOutURL
		},
	})
	if err != nil {
		return err
	}
	defer client.Close()

	out := json.NewEncoder(os.Stdout)
	for _, pattern := range patterns {
		client.Subscribe(pattern, func(payload json.RawMessage, eventType string) {
			if asJSON {
				_ = out.Encode(api.Event{Type_: eventType, Payload: payload})
				return
			}
			fmt.Printf("%-20s %s\n", eventType, payload)
		})
	}

	client.Connect()
	for {
		select {
		case <-ctx.Done():
			return nil
		case url := <-signedOut:
			return fmt.Errorf("session expired, sign in again at %s", url)
		case event := <-clientEvents:
			logger.Debug().
				Str("event", string(event.EventType)).
				Interface("data", event.EventData).
				AnErr("error", event.Error).
				Msg("stream state changed")
		}
	}
}
