package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/lectureplanner-backend/internal/app"
	"github.com/yungbote/lectureplanner-backend/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		a.Log.Error("server failed", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Log.Info("server stopped")
}
