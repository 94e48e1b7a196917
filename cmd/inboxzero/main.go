package main

import (
	"fmt"
	"os"

	"github.com/YoshitsuguKoike/inboxzero/internal/adapter/controller/cli"
	"github.com/YoshitsuguKoike/inboxzero/internal/app/config"
	"github.com/YoshitsuguKoike/inboxzero/internal/buildinfo"
	"github.com/YoshitsuguKoike/inboxzero/internal/infrastructure/di"
)

func main() {
	builder := cli.NewRootBuilder(func(cfg config.Config) (cli.Services, error) {
		return di.NewContainer(cfg)
	}, buildinfo.GetVersion(), buildinfo.Commit)

	err := builder.Build().Execute()
	if cerr := builder.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		if !cli.IsPresented(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
