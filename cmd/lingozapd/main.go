package main

import (
	"flag"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"lingozap/internal/daemon"
)

func main() {
	configFlag := flag.String("config", "lingozap.toml", "path to config file")
	flag.Parse()

	// Secrets come from the environment; a local .env is a convenience
	// for development and absent in production.
	_ = godotenv.Load()

	app := fx.New(
		daemon.Module(daemon.Params{ConfigPath: *configFlag}),
	)

	app.Run()
}
