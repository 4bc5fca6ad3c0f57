package main

import (
	"context"
	"log"
	"os"

	"github.com/hefi-app/hefi/internal/buildinfo"
	"github.com/hefi-app/hefi/internal/server"
	"github.com/hefi-app/hefi/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
