package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

var eventsCmd = &cobra.Command{
	Use:   "events [job-id]",
	Short: "Show the trace of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent jobs",
	RunE:  runJobs,
}

var (
	jobsSession string
	jobsLimit   int
)

func init() {
	jobsCmd.Flags().StringVar(&jobsSession, "session", "", "Only jobs of this session")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "Maximum number of jobs")
}

func runEvents(cmd *cobra.Command, args []string) error {
	body, _, err := apiGet("/v1/jobs/" + url.PathEscape(args[0]) + "/events")
	if err != nil {
		return err
	}
	var resp struct {
		Events []domain.Event `json:"events"`
	}
	if ok, err := decodeInto(body, &resp); !ok || err != nil {
		return err
	}
	renderEvents(os.Stdout, resp.Events)
	return nil
}

func renderEvents(w io.Writer, events []domain.Event) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Time", "Type", "Payload"})
	for _, e := range events {
		t.AppendRow(table.Row{
			time.UnixMilli(e.Ts).Format("15:04:05.000"),
			e.Type,
			string(e.Payload),
		})
	}
	t.Render()
}

func runJobs(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(jobsLimit))
	if jobsSession != "" {
		q.Set("session_id", jobsSession)
	}
	body, _, err := apiGet("/v1/jobs?" + q.Encode())
	if err != nil {
		return err
	}
	var resp struct {
		Jobs []domain.JobRecord `json:"jobs"`
	}
	if ok, err := decodeInto(body, &resp); !ok || err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Job", "Agent", "Session", "Status", "Created"})
	for _, j := range resp.Jobs {
		t.AppendRow(table.Row{j.JobID, j.AgentName, j.SessionID, j.Status, j.CreatedAt.Format(time.RFC3339)})
	}
	t.Render()
	fmt.Printf("%d job(s)\n", len(resp.Jobs))
	return nil
}
