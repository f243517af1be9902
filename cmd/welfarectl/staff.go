package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"welfare/internal/domain"
	"welfare/internal/service"
)

func staffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}

	var (
		email    string
		name     string
		role     string
		password string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		Long: `Create a staff account for one of the role portals.

Roles: admin, treasurer, secretary, coordinator, auditor.
The password may be given with --password or the WELFARE_STAFF_PASSWORD variable.

Example:
  welfarectl staff create --email treasurer@example.org --name "Mary Achieng" --role treasurer`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("WELFARE_STAFF_PASSWORD")
			}

			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			staff, err := e.services().Auth.CreateStaff(cmd.Context(), service.CreateStaffRequest{
				Email:    email,
				FullName: name,
				Role:     domain.Role(role),
				Password: password,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", staff.Role, staff.Email, staff.ID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "staff email address")
	create.Flags().StringVar(&name, "name", "", "staff full name")
	create.Flags().StringVar(&role, "role", "", "staff role")
	create.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("role")

	cmd.AddCommand(create)
	return cmd
}
