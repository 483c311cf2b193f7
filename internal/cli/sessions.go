// sessions.go implements the "ellie sessions" command listing the
// account's saved conversations.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elliehq/ellie/internal/service/conversation"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List your saved conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		return printSessions(cmd.Context(), svc)
	},
}

func printSessions(ctx context.Context, svc *conversation.Service) error {
	if _, ok := svc.CurrentUser(); !ok {
		fmt.Println("sign in to keep a list of conversations")
		return nil
	}

	sessions, err := svc.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no saved conversations yet")
		return nil
	}

	activeID := ""
	if session, ok := svc.ActiveSession(); ok {
		activeID = session.ID
	}

	for _, session := range sessions {
		marker := " "
		if session.ID == activeID {
			marker = "*"
		}
		fmt.Printf("%s %s  %-50s  %d messages  %s\n",
			marker,
			session.ID,
			session.Preview,
			session.MessageCount,
			session.LastActivity.Format("2006-01-02 15:04"),
		)
	}
	return nil
}
