// chat.go implements the interactive loop behind the bare "ellie"
// command.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/elliehq/ellie/internal/model/chat"
	"github.com/elliehq/ellie/internal/service/conversation"
)

func runChat(ctx context.Context, svc *conversation.Service) error {
	renderOpening(svc)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runChatCommand(ctx, svc, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := svc.Send(ctx, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		renderExchangeResult(svc)
	}
}

func runChatCommand(ctx context.Context, svc *conversation.Service, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		printChatHelp()
		return false, nil
	case "/new":
		if err := svc.NewSession(ctx); err != nil {
			return false, err
		}
		renderOpening(svc)
		return false, nil
	case "/sessions":
		return false, printSessions(ctx, svc)
	case "/switch":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /switch <session-id>")
		}
		if err := svc.Switch(ctx, args[0]); err != nil {
			return false, err
		}
		renderOpening(svc)
		return false, nil
	case "/delete":
		target := ""
		if len(args) == 1 {
			target = args[0]
		} else if session, ok := svc.ActiveSession(); ok {
			target = session.ID
		}
		if target == "" {
			return false, fmt.Errorf("usage: /delete [session-id]")
		}
		if err := svc.Delete(ctx, target); err != nil {
			return false, err
		}
		fmt.Println("session deleted")
		if session, ok := svc.ActiveSession(); ok && session.ID != target {
			renderOpening(svc)
		}
		return false, nil
	case "/login":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /login <email>")
		}
		password, err := promptPassword()
		if err != nil {
			return false, err
		}
		if err := svc.Login(ctx, args[0], password); err != nil {
			return false, err
		}
		fmt.Printf("logged in as %s\n", args[0])
		return false, nil
	case "/logout":
		if err := svc.Logout(ctx); err != nil {
			return false, err
		}
		fmt.Println("logged out")
		renderOpening(svc)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s, try /help", command)
	}
}

func printChatHelp() {
	fmt.Println(`commands:
  /new                  start a fresh conversation
  /sessions             list your saved conversations
  /switch <session-id>  continue another conversation
  /delete [session-id]  delete a conversation (default: current)
  /login <email>        sign in
  /logout               sign out
  /quit                 leave`)
}

func renderOpening(svc *conversation.Service) {
	if user, ok := svc.CurrentUser(); ok {
		fmt.Printf("signed in as %s\n", user.Email)
	}
	if svc.ShowIntro() {
		fmt.Println("Hi, I'm Ellie. Ask me anything, or /help for commands.")
		return
	}
	for _, message := range svc.Transcript() {
		printMessage(message)
	}
}

func renderExchangeResult(svc *conversation.Service) {
	if lastErr := svc.LastError(); lastErr != "" {
		fmt.Fprintf(os.Stderr, "error: %s\n", lastErr)
		return
	}
	transcript := svc.Transcript()
	if len(transcript) == 0 {
		return
	}
	last := transcript[len(transcript)-1]
	if last.Role == chat.RoleAssistant {
		printMessage(last)
	}
}

func printMessage(message chat.Message) {
	switch message.Role {
	case chat.RoleUser:
		fmt.Printf("you:   %s\n", message.Content)
	default:
		fmt.Printf("ellie: %s\n", message.Content)
	}
}

func promptPassword() (string, error) {
	fmt.Print("password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
