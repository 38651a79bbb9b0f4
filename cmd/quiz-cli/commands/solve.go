package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"quizsolver-backend/lib/browser"
	"quizsolver-backend/lib/configutil"
	"quizsolver-backend/lib/serviceutil"
	"quizsolver-backend/services/solver"

	"github.com/spf13/cobra"
)

type SolverConfig struct {
	Email      string `json:"email"`
	Secret     string `json:"secret"`
	MaxSeconds int    `json:"max_seconds"`
}

// the same config.json5 shape quizd reads, so one file serves both
type Config struct {
	Solver SolverConfig `json:"solver"`
}

var solveDebugHttp *string

func init() {
	solveDebugHttp = solveCmd.Flags().String(
		"debug-http", "",
		"Directory to dump full http transcripts of browser traffic to.",
	)
	rootCmd.AddCommand(solveCmd)
}

var solveCmd = &cobra.Command{
	Use:   "solve <url>",
	Short: "Runs a single quiz chain to completion and prints the terminal result.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("read config", err)
		}

		quizSolver, err := solver.New(solver.Options{
			Email:      cfg.Solver.Email,
			Secret:     cfg.Solver.Secret,
			MaxRuntime: time.Duration(cfg.Solver.MaxSeconds) * time.Second,
			NewSession: func() (browser.Session, error) {
				return browser.NewSession(browser.Options{
					DebugHttpDir: *solveDebugHttp,
				})
			},
		})
		if err != nil {
			serviceutil.Fatal("init solver", err)
		}

		result := quizSolver.Run(cmd.Context(), args[0])

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			serviceutil.Fatal("render result", err)
		}
		fmt.Println(string(data))
	},
}
