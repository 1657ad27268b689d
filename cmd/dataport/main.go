package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/dataport/cmd/dataport/commands"
	"github.com/JonMunkholm/dataport/internal/core"
	_ "github.com/JonMunkholm/dataport/internal/core/tables" // Register all schemas
	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
)

func main() {
	// A missing .env is normal for the CLI.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCmd().ExecuteContext(ctx); err != nil {
		if !core.IsUserFacing(err) {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}
		pterm.Error.Println(core.FormatUserError(err))
		if detail := core.Detail(err); detail != "" {
			pterm.Info.Println(detail)
		}
		os.Exit(1)
	}
}
