package main

import (
	"context"
	"os"

	"github.com/sandrolain/mongokit/pkg/common"
	"github.com/sandrolain/mongokit/pkg/config"
	"github.com/sandrolain/mongokit/pkg/datakit"
	"github.com/sandrolain/mongokit/pkg/toolutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		toolutil.PrintError("An error occurred:", err)
		os.Exit(1)
	}
}

func run(args []string) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := common.SetupGracefulShutdown(context.Background(), toolutil.Logger())
	defer stop()

	a := newApp(cfg, datakit.New())
	defer func() {
		if cerr := a.close(); cerr != nil {
			if err == nil {
				err = cerr
				return
			}
			toolutil.Logger().Warn("Failed to disconnect", "error", cerr)
		}
	}()

	root := a.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
