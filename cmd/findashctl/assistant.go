package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [prompt]",
	Short: "Run a blocking analysis",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

var responseCmd = &cobra.Command{
	Use:   "response",
	Short: "Manage agent responses",
}

var responseCreateCmd = &cobra.Command{
	Use:   "create [prompt]",
	Short: "Submit a prompt in the background",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResponseCreate,
}

var responseGetCmd = &cobra.Command{
	Use:   "get [agent] [job-id]",
	Short: "Show a job snapshot",
	Args:  cobra.ExactArgs(2),
	RunE:  runResponseGet,
}

var responseWaitCmd = &cobra.Command{
	Use:   "wait [agent] [job-id]",
	Short: "Wait for a job to finish",
	Args:  cobra.ExactArgs(2),
	RunE:  runResponseWait,
}

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Chat with a session agent interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

var (
	analyzeSymbol string
	agentName     string
	maxWait       time.Duration
	pollInterval  time.Duration
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSymbol, "symbol", "", "Ticker the question is about")
	analyzeCmd.Flags().StringVar(&agentName, "agent", "", "Agent to ask (defaults to the server's agent)")
	responseCreateCmd.Flags().StringVar(&agentName, "agent", "", "Agent to ask (defaults to the server's agent)")
	responseWaitCmd.Flags().DurationVar(&maxWait, "max-wait", 2*time.Minute, "Maximum time to wait")
	responseWaitCmd.Flags().DurationVar(&pollInterval, "interval", 2*time.Second, "Poll interval")

	responseCmd.AddCommand(responseCreateCmd, responseGetCmd, responseWaitCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	body, _, err := apiPost("/v1/analysis", domain.AnalysisRequest{
		Symbol: analyzeSymbol,
		Prompt: strings.Join(args, " "),
		Agent:  agentName,
	})
	if err != nil {
		return err
	}
	var resp domain.AnalysisResponse
	if ok, err := decodeInto(body, &resp); !ok || err != nil {
		return err
	}
	fmt.Printf("[%s on %s: %s]\n\n%s\n", resp.JobID, resp.AgentName, resp.Status, resp.Text)
	return nil
}

func runResponseCreate(cmd *cobra.Command, args []string) error {
	body, _, err := apiPost("/v1/responses", domain.CreateResponseRequest{
		Agent:      agentName,
		Prompt:     strings.Join(args, " "),
		Background: true,
	})
	if err != nil {
		return err
	}
	var view domain.JobView
	if ok, err := decodeInto(body, &view); !ok || err != nil {
		return err
	}
	renderJobView(os.Stdout, view)
	return nil
}

func runResponseGet(cmd *cobra.Command, args []string) error {
	body, _, err := apiGet(responsePath(args[0], args[1]))
	if err != nil {
		return err
	}
	var view domain.JobView
	if ok, err := decodeInto(body, &view); !ok || err != nil {
		return err
	}
	renderJobView(os.Stdout, view)
	return nil
}

func runResponseWait(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	q.Set("max_wait_ms", strconv.FormatInt(maxWait.Milliseconds(), 10))
	q.Set("interval_ms", strconv.FormatInt(pollInterval.Milliseconds(), 10))

	body, status, err := apiPost(responsePath(args[0], args[1])+"/wait?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	if status == http.StatusAccepted {
		fmt.Printf("Job %s is still processing, try later.\n", args[1])
		return nil
	}
	var view domain.JobView
	if ok, err := decodeInto(body, &view); !ok || err != nil {
		return err
	}
	renderJobView(os.Stdout, view)
	return nil
}

func responsePath(agent, jobID string) string {
	return "/v1/responses/" + url.PathEscape(agent) + "/" + url.PathEscape(jobID)
}

func renderJobView(w io.Writer, v domain.JobView) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"Job", v.JobID})
	t.AppendRow(table.Row{"Agent", v.AgentName})
	t.AppendRow(table.Row{"Status", v.Status})
	if v.CreatedAt > 0 {
		t.AppendRow(table.Row{"Created", time.UnixMilli(v.CreatedAt).Format(time.RFC3339)})
	}
	t.Render()
	if v.Text != "" {
		fmt.Fprintf(w, "\n%s\n", v.Text)
	}
}

// runChat reads messages from stdin and sends each to the session agent.
func runChat(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	chatPath := "/v1/sessions/" + url.PathEscape(sessionID) + "/chat"

	fmt.Printf("Chatting in session %s. The first message provisions the session agent.\n", sessionID)
	fmt.Println("Commands: /quit to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Println("Bye!")
			return nil
		}

		body, _, err := apiPost(chatPath, domain.ChatRequest{Message: input})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Send error: %v\n", err)
			continue
		}
		var resp domain.AnalysisResponse
		if ok, err := decodeInto(body, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Send error: %v\n", err)
		} else if ok {
			fmt.Printf("\n[%s]\n%s\n\n", resp.AgentName, resp.Text)
		}
	}
}
