package main

import (
	"context"
	"log"
	"os"

	"github.com/hefi-app/hefi/internal/buildinfo"
	"github.com/hefi-app/hefi/internal/client/cli"
	"github.com/hefi-app/hefi/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
