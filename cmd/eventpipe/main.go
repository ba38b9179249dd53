package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/eventpipe/internal/cli"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		cli.ReportError(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	// .env fills in variables the environment leaves unset; it never
	// replaces an inherited value.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cmd := cli.NewRootCmd(version)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}
