package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	logoutAll   bool
	refreshRole string
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of the active session",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		if logoutAll {
			if err := m.ClearAllSessions(cmd.Context()); err != nil {
				return err
			}
			pterm.Success.Println("Cleared every session")
			return nil
		}
		if err := m.Logout(cmd.Context()); err != nil {
			return err
		}
		pterm.Success.Println("Logged out successfully")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		role, err := optionalRole(refreshRole)
		if err != nil {
			return err
		}
		if err := m.RefreshSession(cmd.Context(), role); err != nil {
			return err
		}
		pterm.Success.Println("Access token refreshed")
		return nil
	},
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Also remove every stored role session")
	refreshCmd.Flags().StringVar(&refreshRole, "role", "", "Role whose session to refresh (default: active)")
}
