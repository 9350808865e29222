package cmd

import (
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/goSession/jwt"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		rec, err := m.ActiveSession(cmd.Context())
		if err != nil {
			pterm.Info.Println("No active session")
			return nil
		}

		expires := "unknown"
		if exp, ok := jwt.Expiry(rec.Token); ok {
			expires = exp.Local().Format(time.RFC1123)
		}
		age := time.Since(rec.SessionStart).Truncate(time.Second)
		remaining := (m.Policy().SessionTimeout - age).Truncate(time.Second)

		pterm.DefaultSection.Println("Active Session")
		return pterm.DefaultTable.WithData(pterm.TableData{
			{"Name", rec.Name},
			{"Username", rec.Username},
			{"User ID", rec.UserID},
			{"Role", string(rec.UserType)},
			{"Granted roles", strings.Join(rec.UserRoles, ", ")},
			{"Session age", age.String()},
			{"Session timeout in", remaining.String()},
			{"Access token expires", expires},
			{"Mode", string(m.Policy().Mode)},
		}).Render()
	},
}
