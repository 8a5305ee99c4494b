package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"zentari/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("server", "http://localhost:8080", "Base URL of the API server")
	watchCmd.Flags().String("token", "", "API token (see 'zentarictl account token')")
	_ = watchCmd.MarkFlagRequired("token")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow an account's live status feed",
	Long: `Connect to the server's websocket feed with an API token and print every
status push until interrupted. Useful as a smoke test of a deployment.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func feedURL(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")

	target, err := feedURL(server, token)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", server, err)
	}
	defer conn.Close()

	go func() {
		<-cmd.Context().Done()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	out := cmd.OutOrStdout()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if cmd.Context().Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var env ws.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			fmt.Fprintf(out, "? %s\n", msg)
			continue
		}
		fmt.Fprintf(out, "%-7s %s\n", env.Type, env.Payload)
	}
}
