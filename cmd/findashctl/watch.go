package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch [agent] [job-id]",
	Short: "Stream status updates of a job until it finishes",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatch,
}

var watchInterval time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Server-side poll interval")
}

// watchURL turns the API address into the job's WebSocket endpoint.
func watchURL(api, agent, jobID string, interval time.Duration) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(api, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid API address: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += responsePath(agent, jobID) + "/watch"
	if interval > 0 {
		u.RawQuery = "interval_ms=" + strconv.FormatInt(interval.Milliseconds(), 10)
	}
	return u.String(), nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	addr, err := watchURL(apiAddr, args[0], args[1], watchInterval)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	return readWatch(conn, os.Stdout)
}

// readWatch prints watch messages until the job is done or the server
// reports an error.
func readWatch(conn *websocket.Conn, w io.Writer) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg domain.WatchMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Fprintf(w, "unreadable message: %s\n", data)
			continue
		}

		ts := time.UnixMilli(msg.Ts).Format("15:04:05")
		switch msg.Type {
		case domain.WatchTypeStatus:
			fmt.Fprintf(w, "[%s] %s\n", ts, msg.Status)
		case domain.WatchTypeDone:
			fmt.Fprintf(w, "[%s] %s\n\n%s\n", ts, msg.Status, msg.Text)
			return nil
		case domain.WatchTypeError:
			return fmt.Errorf("%s: %s", msg.Code, msg.Error)
		}
	}
}
