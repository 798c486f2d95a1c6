package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"querydesk/internal/di"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to the platform",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			app.Auth.Restore(ctx)

			username, err := argOrPrompt(args, 0, "Username: ")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			if err := app.Auth.Login(ctx, username, password); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s\n", username)
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create a platform account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()

			username, err := argOrPrompt(args, 0, "Username: ")
			if err != nil {
				return err
			}

			exists, err := app.Client.CheckUsername(ctx, username)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("username %q is already taken", username)
			}

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			if len(password) < 6 {
				return fmt.Errorf("password must be at least 6 characters")
			}

			if err := app.Client.Register(ctx, username, password); err != nil {
				return err
			}
			fmt.Println("Account created, you can now log in")
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			if err := app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			if err := requireAuth(cmd.Context(), app); err != nil {
				return err
			}
			user := app.Auth.User()
			fmt.Printf("%s (id %s)\n", user.Username, user.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

func argOrPrompt(args []string, index int, prompt string) (string, error) {
	if len(args) > index {
		return args[index], nil
	}
	return promptLine(prompt)
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(password), nil
}
