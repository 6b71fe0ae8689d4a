package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sudosubin/nix-chrome-extensions/internal/chromestore"
	"github.com/sudosubin/nix-chrome-extensions/internal/config"
	httpclient "github.com/sudosubin/nix-chrome-extensions/internal/http"
	"github.com/sudosubin/nix-chrome-extensions/internal/tui"
	"github.com/sudosubin/nix-chrome-extensions/internal/update"
)

func main() {
	var (
		configFlag  = flag.String("config", "", "Path to config file")
		dataDirFlag = flag.String("data-dir", "", "Data directory (overrides config)")
	)
	flag.Parse()

	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dataDirFlag != "" {
		settings.DataDir = *dataDirFlag
	}

	maxSize, err := settings.DownloadLimit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := httpclient.NewClient(httpclient.Options{
		Timeout:   settings.HTTPTimeout,
		UserAgent: settings.UserAgent,
		MaxSize:   maxSize,
	})
	resolvers := map[string]update.Resolver{
		chromestore.Site: chromestore.NewResolver(client, settings.UpdateURL, settings.ProdVersion, nil),
	}

	if err := tui.Run(settings, resolvers); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
