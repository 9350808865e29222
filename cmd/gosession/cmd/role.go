package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/goSession/session"
)

var switchRoleCmd = &cobra.Command{
	Use:   "switch-role ROLE",
	Short: "Change the role of the active session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := parseRole(args[0])
		if err != nil {
			return err
		}
		m, _, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		if err := m.SwitchRole(cmd.Context(), role); err != nil {
			return fmt.Errorf("switch role: %w", err)
		}
		pterm.Success.Printf("Now acting as %s\n", role)
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List roles with a stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		avail, err := m.GetAvailableSessions(cmd.Context())
		if err != nil {
			return err
		}
		active := ""
		if rec, err := m.ActiveSession(cmd.Context()); err == nil {
			active = string(rec.UserType)
		}

		data := pterm.TableData{{"ROLE", "STORED", "ACTIVE"}}
		for _, role := range session.Roles {
			data = append(data, []string{
				string(role),
				yesNo(avail[role]),
				yesNo(active == string(role)),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
