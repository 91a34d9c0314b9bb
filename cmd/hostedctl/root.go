// Command hostedctl is the operator-facing counterpart to hostedchand,
// grounded on chantools' one-cobra-command-per-file layout but scaled
// down to the handful of operations spec.md §7 and §4.7 expose for
// manual recovery.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var daemonURL string

var rootCmd = &cobra.Command{
	Use:   "hostedctl",
	Short: "Operate a hostedchand daemon's channels",
	Long: `hostedctl talks to a running hostedchand over its local RPC
endpoint to add and resolve HTLCs, propose or accept a resize, accept a
forced-recovery override, or inspect a channel's recent activity.`,
	DisableAutoGenTag: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(
		&daemonURL, "daemon_url", "http://127.0.0.1:4230",
		"Base URL of the hostedchand RPC endpoint",
	)

	rootCmd.AddCommand(
		newInspectCommand(),
		newAddHtlcCommand(),
		newFulfillHtlcCommand(),
		newFailHtlcCommand(),
		newProposeResizeCommand(),
		newAcceptOverrideCommand(),
		newSuspendCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// postRPC posts req (if non-nil) as JSON to path?channel_id=channelID
// and decodes the response into resp (if non-nil).
func postRPC(path, channelID string, req, resp interface{}) error {
	var body io.Reader
	if req != nil {
		buf, err := json.Marshal(req)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	url := fmt.Sprintf("%s%s?channel_id=%s", daemonURL, path, channelID)
	httpResp, err := http.Post(url, "application/json", body)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(httpResp.Body)
		return fmt.Errorf("hostedchand: %s", msg)
	}
	if resp == nil {
		return nil
	}
	return json.NewDecoder(httpResp.Body).Decode(resp)
}
