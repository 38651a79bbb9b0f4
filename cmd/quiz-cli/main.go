package main

import (
	"context"

	"quizsolver-backend/cmd/quiz-cli/commands"
	"quizsolver-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "quiz-cli")
	commands.ExecuteContext(context.Background())
}
