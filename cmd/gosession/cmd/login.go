package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

var (
	loginRole     string
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as a member, admin or trainer",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := parseRole(loginRole)
		if err != nil {
			return err
		}
		if loginUsername == "" {
			return errors.New("--username is required")
		}
		password := loginPassword
		if password == "" {
			password = os.Getenv("GOSESSION_PASSWORD")
		}
		if password == "" {
			password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}

		m, _, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		spinner, _ := pterm.DefaultSpinner.Start("Logging in as " + string(role))
		res := m.AuthenticateUser(cmd.Context(), goSession.Credentials{
			Username: loginUsername,
			Password: password,
		}, role)
		if !res.Success() {
			if spinner != nil {
				_ = spinner.Stop()
			}
			if res.Kind == goSession.FailureMaintenanceMode {
				pterm.Warning.Println(res.Message)
			} else {
				pterm.Error.Printf("%s: %s\n", res.Kind, res.Message)
			}
			return res.Err
		}
		if spinner != nil {
			spinner.Success(fmt.Sprintf("Logged in as %s (%s)", res.Session.Name, res.Session.UserType))
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginRole, "role", "r", "member", "Role to log in as")
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (or GOSESSION_PASSWORD; prompted when empty)")
}
