package main

import (
	"log/slog"
	"os"

	"github.com/aryankumar/ctxexec/internal/cli"
	"github.com/aryankumar/ctxexec/internal/util"
)

func main() {
	// a second signal forces exit
	ctx := util.SetupSignalHandler(nil)

	if err := cli.Execute(ctx); err != nil {
		slog.Error("command failed", "error", util.FriendlyError(err))
		os.Exit(1)
	}
}
