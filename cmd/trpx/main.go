package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "trpx",
		Usage: "pack, unpack, and inspect .trpx electron-diffraction containers",
		Commands: []*cli.Command{
			packCmd(),
			unpackCmd(),
			infoCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "trpx:", err)
		os.Exit(1)
	}
}
