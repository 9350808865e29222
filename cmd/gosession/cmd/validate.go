package cmd

import (
	"errors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

var (
	validateArea   string
	validatePath   string
	validateDelete bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the active session for a navigation area",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cfg, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		opts := goSession.ValidateOptions{}
		switch {
		case validatePath != "":
			opts.Area = cfg.Routing.AreaFor(validatePath)
		case validateArea != "":
			role, err := parseRole(validateArea)
			if err != nil {
				return err
			}
			opts.Area = session.AreaFor(role)
		}
		if validateDelete {
			opts.Operation = goSession.OperationDelete
		}

		status := m.ValidateSession(cmd.Context(), opts)
		if !status.Valid {
			pterm.Error.Printf("Session invalid: %s (skipClear=%t)\n", status.Reason, status.SkipClear)
			return errors.New("session invalid")
		}
		if status.Restored {
			pterm.Success.Printf("Restored %s session\n", status.Session.UserType)
			return nil
		}
		pterm.Success.Println("Session valid")
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateArea, "area", "", "Navigation area: member, admin or trainer")
	validateCmd.Flags().StringVar(&validatePath, "path", "", "Route path; its area is looked up in the routing config")
	validateCmd.Flags().BoolVar(&validateDelete, "delete", false, "Validate on behalf of a destructive operation")
}
