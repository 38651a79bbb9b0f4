package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"quizsolver-backend/lib/serviceutil"
	"quizsolver-backend/lib/telemetry"
	"quizsolver-backend/services/jobs"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var jobsBaseUrl *string

func init() {
	jobsBaseUrl = jobsCmd.PersistentFlags().String(
		"base-url", "http://localhost:8000",
		"Base url of the quizd instance to query.",
	)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	rootCmd.AddCommand(jobsCmd)
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspects the job registry of a running quizd.",
}

func apiClient() *resty.Client {
	client := resty.New().SetBaseURL(*jobsBaseUrl)
	telemetry.InstrumentResty(client, "quiz-cli/jobs")
	return client
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists jobs, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		var body struct {
			Jobs []jobs.Job `json:"jobs"`
		}
		res, err := apiClient().R().
			SetContext(cmd.Context()).
			SetResult(&body).
			Get("/api/jobs")
		if err != nil {
			serviceutil.Fatal("list jobs", err)
		}
		if res.IsError() {
			serviceutil.Fatal("list jobs", fmt.Errorf("GET /api/jobs: %s", res.Status()))
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Status", "Result", "Email", "Url", "Created"})
		for _, job := range body.Jobs {
			result := ""
			if job.Result != nil {
				result = string(job.Result.Status)
			}
			t.AppendRow(table.Row{
				job.Id,
				job.Status,
				result,
				job.Email,
				job.Url,
				job.CreatedAt.Format(time.ANSIC),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Prints one job as json, including its terminal result.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := apiClient().R().
			SetContext(cmd.Context()).
			Get("/api/jobs/" + url.PathEscape(args[0]))
		if err != nil {
			serviceutil.Fatal("show job", err)
		}
		if res.StatusCode() == http.StatusNotFound {
			serviceutil.Fatal("show job", fmt.Errorf("no job with id %q", args[0]))
		}
		if res.IsError() {
			serviceutil.Fatal("show job", fmt.Errorf("GET /api/jobs/{id}: %s", res.Status()))
		}

		var pretty bytes.Buffer
		err = json.Indent(&pretty, res.Body(), "", "  ")
		if err != nil {
			fmt.Println(string(res.Body()))
			return
		}
		fmt.Println(pretty.String())
	},
}
