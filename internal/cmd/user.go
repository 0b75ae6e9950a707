package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/starter/core/config"
	"github.com/dmitrymomot/starter/integration/database/pg"
	"github.com/dmitrymomot/starter/internal/user"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		name, email, password, role string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account in PostgreSQL",
		Long: `Create a user account. This is the only way to create a superadmin.

Example:
  starter user create --name "Ada" --email ada@example.com --password s3cret-pass --role superadmin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := user.ParseRole(role)
			if err != nil {
				return err
			}

			var cfg pg.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			pool, err := pg.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := user.NewService(user.NewPgRepository(pool), user.WithLogger(cliLogger("info")))
			u, err := svc.Create(cmd.Context(), user.CreateParams{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     r,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s> with role %s\n", u.ID, u.Email, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(user.RoleUser), "role: user, admin or superadmin")
	for _, f := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
