package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/polaris-accel/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "polaris-accel"
	app.Usage = "build and benchmark ray tracing acceleration structures"
	app.Version = "0.0.1"
	app.Flags = cmd.GlobalFlags
	app.Commands = cmd.Commands()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
