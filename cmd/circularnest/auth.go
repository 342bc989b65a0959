package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("CIRCULARNEST_PASSWORD")
			}
			user, err := a.session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or CIRCULARNEST_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.session.Logout()
			return nil
		},
	}
}

type institutionFlags struct {
	name, contact, phone, address, city, state, pincode string
}

func (f *institutionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "institution", "", "institution name")
	cmd.Flags().StringVar(&f.contact, "contact", "", "contact person")
	cmd.Flags().StringVar(&f.phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&f.address, "address", "", "street address")
	cmd.Flags().StringVar(&f.city, "city", "", "city")
	cmd.Flags().StringVar(&f.state, "state", "", "state")
	cmd.Flags().StringVar(&f.pincode, "pincode", "", "postal code")
}

// changed keeps only the flags given on the command line, so a profile update
// leaves the rest untouched.
func (f *institutionFlags) changed(cmd *cobra.Command) model.Institution {
	pick := func(name, value string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &value
	}
	return model.Institution{
		InstitutionName: pick("institution", f.name),
		ContactPerson:   pick("contact", f.contact),
		Phone:           pick("phone", f.phone),
		Address:         pick("address", f.address),
		City:            pick("city", f.city),
		State:           pick("state", f.state),
		Pincode:         pick("pincode", f.pincode),
	}
}

func newSignupCmd(a *app) *cobra.Command {
	var (
		email, password, role string
		inst                  institutionFlags
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register an institution account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session.Signup(cmd.Context(), email, password, model.Role(role), inst.changed(cmd))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "at least 6 characters")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "account role")
	inst.register(cmd)
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.session.User())
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	var inst institutionFlags
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update institution details of the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			user, err := a.session.UpdateProfile(cmd.Context(), inst.changed(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		},
	}
	inst.register(cmd)
	return cmd
}
