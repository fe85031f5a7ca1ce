package cli

import (
	"fmt"

	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/render"
	"github.com/lherron/guildq/internal/store"
	"github.com/spf13/cobra"
)

var usersAdmCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage players and coaches",
}

var usersAdmLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all users",
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runUsersAdmList),
}

var userAdmAddCmd = &cobra.Command{
	Use:   "add <handle>",
	Short: "Create a new user",
	Long:  `Creates a user with the given handle. The handle is normalized to lowercase [a-z0-9-_].`,
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runUserAdmAdd),
}

var (
	usersAdmLsJSON  bool
	userAdmAddName  string
	userAdmAddEmail string
)

func init() {
	rootAdmCmd.AddCommand(usersAdmCmd)
	usersAdmCmd.AddCommand(usersAdmLsCmd)
	usersAdmCmd.AddCommand(userAdmAddCmd)

	usersAdmLsCmd.Flags().BoolVar(&usersAdmLsJSON, "json", false, "Output as JSON")
	userAdmAddCmd.Flags().StringVar(&userAdmAddName, "name", "", "Display name")
	userAdmAddCmd.Flags().StringVar(&userAdmAddEmail, "email", "", "Email address")
}

func runUsersAdmList(app *appctx.App, cmd *cobra.Command, args []string) error {
	users, err := app.Store.Users.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Handle, optionalString(u.Name), optionalString(u.Email)})
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{
		Format: outputFormat(app.Config.Output, usersAdmLsJSON, false),
	})
	return r.Render(users, []string{"ID", "HANDLE", "NAME", "EMAIL"}, rows)
}

func runUserAdmAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	user, err := app.Store.Users.Create(cmd.Context(), store.UserCreateParams{
		Handle: args[0],
		Name:   userAdmAddName,
		Email:  userAdmAddEmail,
	})
	if err != nil {
		return exitError(1, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created user: %s (%s)\n", user.Handle, user.ID)
	return nil
}
