package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lherron/guildq/internal/cli"
)

func main() {
	addr := flag.String("addr", os.Getenv("GUILDQD_ADDR"), "Listen address (default 127.0.0.1:7420)")
	unixPath := flag.String("unix", os.Getenv("GUILDQD_UNIX"), "Listen on unix socket path")
	token := flag.String("token", os.Getenv("GUILDQD_TOKEN"), "Shared token for local auth")
	dbPath := flag.String("db", "", "Database path override (defaults to config)")
	logLevel := flag.String("log-level", "", "Log level override (defaults to config)")
	flag.Parse()

	opts := cli.DaemonOptions{
		Addr:     *addr,
		Unix:     *unixPath,
		Token:    *token,
		DBPath:   *dbPath,
		LogLevel: *logLevel,
	}

	if err := cli.ServeDaemon(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
