package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

var (
	requestRole string
	requestData string
)

var requestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Send an authenticated request to the API",
	Long: `Send a request through the session transport. A 401 triggers one token
refresh and one retry; a refresh that fails ends the session.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cfg, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		role, err := optionalRole(requestRole)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if role != "" {
			ctx = goSession.WithRole(ctx, role)
		}

		var body io.Reader
		if requestData != "" {
			body = strings.NewReader(requestData)
		}
		req, err := http.NewRequestWithContext(ctx, strings.ToUpper(args[0]), strings.TrimRight(cfg.API.BaseURL, "/")+args[1], body)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := m.HTTPClient().Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		printer := pterm.Success
		if resp.StatusCode >= 400 {
			printer = pterm.Error
		}
		printer.Println(resp.Status)

		var pretty bytes.Buffer
		if json.Indent(&pretty, raw, "", "  ") == nil {
			raw = pretty.Bytes()
		}
		fmt.Fprintln(os.Stdout, string(raw))
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server answered %s", resp.Status)
		}
		return nil
	},
}

func init() {
	requestCmd.Flags().StringVar(&requestRole, "role", "", "Send on behalf of this role's session (default: active)")
	requestCmd.Flags().StringVarP(&requestData, "data", "d", "", "JSON request body")
}

func optionalRole(s string) (session.Role, error) {
	if s == "" {
		return "", nil
	}
	return parseRole(s)
}
