package main

import (
	configlibsql "quizsolver-backend/lib/configutil/libsql"
	"quizsolver-backend/services/notify"
)

type SolverConfig struct {
	// identity forwarded in every submission
	Email  string `json:"email"`
	Secret string `json:"secret"`
	// ceiling on a single quiz chain run, 180 when unset
	MaxSeconds int `json:"max_seconds"`
	// when set (and -v is given), full http transcripts of browser
	// traffic are dumped here
	DebugHttpDir string `json:"debug_http_dir"`
}

type Config struct {
	// defaults to 8000
	Port   int          `json:"port"`
	Solver SolverConfig `json:"solver"`
	// job outcome store, jobs are memory-only when unset
	Database configlibsql.Struct `json:"database"`
	// completion emails, disabled when unset
	Smtp notify.SmtpConfig `json:"smtp"`
}
