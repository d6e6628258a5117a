package users

import (
	"fmt"
	"net/http"
	"time"

	"github.com/crucial707/blog/cmd/cli/client"
	"github.com/crucial707/blog/cmd/cli/config"
	"github.com/crucial707/blog/cmd/cli/output"
	"github.com/crucial707/blog/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// CLI Command Init
// ==========================
func InitUsers(rootCmd *cobra.Command) {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts and sessions",
		Long: `Register or log in to the blog API.
The session token is stored locally for future commands.`,
	}

	usersCmd.AddCommand(registerCmd(), loginCmd(), logoutCmd(), listUsersCmd())
	rootCmd.AddCommand(usersCmd)
}

// prompt asks for value on stdin when the flag was left empty.
func prompt(label string, value *string) {
	if *value != "" {
		return
	}
	fmt.Print(label + ": ")
	fmt.Scanln(value)
}

// ==========================
// Register User
// ==========================
func registerCmd() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt("Username", &username)
			prompt("Email", &email)
			prompt("Password", &password)

			var user models.User
			err := client.JSON(http.MethodPost, "/register", map[string]string{
				"username":         username,
				"email":            email,
				"password":         password,
				"confirm_password": password,
			}, &user)
			if err != nil {
				return err
			}

			fmt.Printf("Account %q created. You can now log in.\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (2-20 characters)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (at least 6 characters)")
	return cmd
}

// ==========================
// Login User
// ==========================
func loginCmd() *cobra.Command {
	var email, password string
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt("Email", &email)
			prompt("Password", &password)

			var result struct {
				Token string      `json:"token"`
				User  models.User `json:"user"`
			}
			err := client.JSON(http.MethodPost, "/login", map[string]interface{}{
				"email":    email,
				"password": password,
				"remember": remember,
			}, &result)
			if err != nil {
				return err
			}
			if result.Token == "" {
				return fmt.Errorf("login succeeded but no token returned")
			}

			if err := config.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Printf("Logged in as %s. Token saved to %s.\n", result.User.Username, config.TokenPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	cmd.Flags().BoolVar(&remember, "remember", false, "Keep the session for the remember-me lifetime")
	return cmd
}

// ==========================
// Logout User
// ==========================
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the locally saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := config.RemoveToken()
			if err != nil {
				return err
			}
			if !removed {
				fmt.Println("No user logged in.")
				return nil
			}
			fmt.Println("Logged out successfully.")
			return nil
		},
	}
}

// ==========================
// List Users
// ==========================
func listUsersCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Users []models.User `json:"users"`
			}
			if err := client.JSON(http.MethodGet, "/users", nil, &result); err != nil {
				return err
			}

			if asJSON {
				return output.RenderJSON(result.Users)
			}

			rows := make([][]interface{}, 0, len(result.Users))
			for _, u := range result.Users {
				rows = append(rows, []interface{}{u.ID, u.Username, u.Email, u.CreatedAt.Format(time.DateOnly)})
			}
			output.RenderTable([]string{"ID", "Username", "Email", "Joined"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
