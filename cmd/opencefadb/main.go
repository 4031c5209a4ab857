// Command opencefadb is the client of the open centrifugal fan database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/archive"
	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/config/file"
	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/metadata"
	"github.com/opencefadb/opencefadb-cli/internal/adapters/driving/cli"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/metrics"
)

// version is set by the release build.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening profile store: %v\n", err)
		return cli.ExitError
	}

	m := metrics.New()
	profiles := services.NewProfileService(configStore)
	sessions := &services.SessionFactory{
		Profiles: profiles,
		Stores:   metadata.NewFactory(),
		Archives: archive.NewFactory(m),
		Metrics:  m,
	}

	cli.SetVersion(version)
	cli.SetServices(profiles, sessions, m)

	if err := cli.Execute(ctx); err != nil {
		logger.Error("%v", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}
