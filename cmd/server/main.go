package main

import (
	"context"
	"log"
	"os"

	"github.com/obralink/obralink/internal/buildinfo"
	"github.com/obralink/obralink/internal/server"
	"github.com/obralink/obralink/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
