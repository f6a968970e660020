// Package cli implements crmctl, the operator command line for MiniCRM.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/policy"
	"github.com/minicrm/backend/internal/repository"
	"github.com/minicrm/backend/internal/service"
	"github.com/minicrm/backend/pkg/auth"
)

// operator is the principal role changes are attributed to. Anyone who can
// run crmctl against the database already has full control of it.
var operator = auth.Principal{UserID: "crmctl", Roles: []auth.Role{auth.RoleAdmin}}

// NewRootCmd builds the crmctl command tree. Settings are read from v,
// which callers fill from flags, the environment and an optional config file.
func NewRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "MiniCRM operator tool",
		Long:          "Inspects users and manages admin roles directly against the MiniCRM database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("database.url", "sqlite:minicrm.db", "Database URL (postgres:// or sqlite:path)")
	_ = v.BindPFlag("database.url", root.PersistentFlags().Lookup("database.url"))
	_ = v.BindEnv("database.url", "DATABASE_URL")

	root.AddCommand(newUsersCmd(v), newAdminCmd(v))
	return root
}

func newUsersCmd(v *viper.Viper) *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Inspect user accounts"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users with their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			return withAdminService(cmd.Context(), v, func(svc service.AdminUserService) error {
				found, err := svc.ListUsers(cmd.Context(), operator, limit, offset)
				if err != nil {
					return err
				}
				return printUsers(cmd.OutOrStdout(), found)
			})
		},
	}
	list.Flags().Int("limit", model.MaxPageSize, "Maximum number of users to show")
	list.Flags().Int("offset", 0, "Number of users to skip")

	users.AddCommand(list)
	return users
}

func newAdminCmd(v *viper.Viper) *cobra.Command {
	admin := &cobra.Command{Use: "admin", Short: "Manage the Admin role"}

	admin.AddCommand(
		roleCmd(v, "grant", "Grant the Admin role to a user (id or email)", true),
		roleCmd(v, "revoke", "Revoke the Admin role from a user (id or email)", false),
	)

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Create or promote the bootstrap admin",
		Long:  "Creates the account named by --email (ADMIN_EMAIL) with --password (ADMIN_PASSWORD), or grants Admin if it already exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(v.GetString("admin.email"))
			if email == "" {
				return errors.New("admin email is required (--email or ADMIN_EMAIL)")
			}
			return withAdminService(cmd.Context(), v, func(svc service.AdminUserService) error {
				u, err := svc.EnsureAdmin(cmd.Context(), email, v.GetString("admin.password"))
				if err != nil {
					var verr *service.ValidationError
					if errors.As(err, &verr) {
						return fmt.Errorf("seed admin: %v", verr.Fields)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin ready: %s (%s)\n", u.Email, u.ID)
				return nil
			})
		},
	}
	seed.Flags().String("email", "", "Admin email address")
	seed.Flags().String("password", "", "Password used when the account does not exist yet")
	_ = v.BindPFlag("admin.email", seed.Flags().Lookup("email"))
	_ = v.BindPFlag("admin.password", seed.Flags().Lookup("password"))
	_ = v.BindEnv("admin.email", "ADMIN_EMAIL")
	_ = v.BindEnv("admin.password", "ADMIN_PASSWORD")

	admin.AddCommand(seed)
	return admin
}

func roleCmd(v *viper.Viper, use, short string, grant bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withAdminService(ctx, v, func(svc service.AdminUserService) error {
				u, err := svc.ResolveUser(ctx, args[0])
				if errors.Is(err, service.ErrNotFound) {
					return fmt.Errorf("no user matches %q", args[0])
				}
				if err != nil {
					return err
				}
				var changed bool
				if grant {
					changed, err = svc.GrantAdmin(ctx, operator, u.ID)
				} else {
					changed, err = svc.RevokeAdmin(ctx, operator, u.ID)
				}
				if err != nil {
					return err
				}
				state := "unchanged"
				if changed {
					state = "updated"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", state, u.Email, u.ID)
				return nil
			})
		},
	}
}

// withAdminService opens the configured store for the duration of fn.
func withAdminService(ctx context.Context, v *viper.Viper, fn func(service.AdminUserService) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := repository.Open(ctx, v.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	return fn(service.NewAdminUserService(store.Users, policy.UserListingGate{AllowAnyEnv: true}))
}

func printUsers(w io.Writer, users []*model.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLES\tCREATED")
	for _, u := range users {
		roles := make([]string, len(u.Roles))
		for i, r := range u.Roles {
			roles[i] = string(r)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Email, u.Name, strings.Join(roles, ","), u.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func initConfig(v *viper.Viper) {
	v.SetConfigName("crmctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}
}

// Execute runs crmctl with the process arguments and exits non-zero on error.
func Execute() {
	v := viper.New()
	cobra.OnInitialize(func() { initConfig(v) })
	if err := NewRootCmd(v).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
