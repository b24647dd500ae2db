package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"storefront/internal/config"

	_ "storefront/docs"
)

// @title Storefront API
// @version 1.0
// @description Carts, checkout and orders.
// @BasePath /api/v1
func main() {
	app := &cli.App{
		Name:  "storefront",
		Usage: "shopping cart and order service",
		Flags: config.Flags(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply the embedded schema migrations to DATABASE_URL",
				Action: migrate,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
