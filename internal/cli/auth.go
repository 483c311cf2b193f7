// auth.go implements the "ellie login", "ellie register" and
// "ellie logout" commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in to your account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		password, err := promptPassword()
		if err != nil {
			return err
		}
		if err := svc.Login(cmd.Context(), args[0], password); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", args[0])
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account",
	Long: `Create an account with the given email address. The conversation you
have had so far, if any, is attached to the new account.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		password, err := promptPassword()
		if err != nil {
			return err
		}
		if err := svc.Register(cmd.Context(), args[0], password); err != nil {
			return err
		}
		fmt.Printf("registered %s\n", args[0])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and start a fresh anonymous session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		if _, ok := svc.CurrentUser(); !ok {
			fmt.Println("not signed in")
			return nil
		}
		if err := svc.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil
	},
}
