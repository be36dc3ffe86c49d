package main

import (
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/driftbase/driftdb/internal/docstore"
	"github.com/driftbase/driftdb/internal/docstore/boltstore"
	"github.com/driftbase/driftdb/internal/docstore/memstore"
	"github.com/driftbase/driftdb/internal/facade"
	"github.com/driftbase/driftdb/internal/httpapi"
)

func main() {
	app := &cli.App{
		Name:  "driftdb",
		Usage: "reactive document store",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Value: ":8080",
						Usage: "listen address",
					},
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "directory for persistent storage; in-memory when unset",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "enable debug logging",
					},
				},
				Action: serve,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(c *cli.Context) error {
	if c.Bool("verbose") {
		log.SetLevel(log.DebugLevel)
	}

	var storage docstore.Storage
	if dir := c.String("data-dir"); dir != "" {
		var err error
		storage, err = boltstore.New(boltstore.Options{RootDir: dir})
		if err != nil {
			return err
		}
	} else {
		log.Warn("no data directory given, documents will not survive a restart")
		storage = memstore.New(memstore.Options{})
	}

	registry := facade.NewRegistry()
	if err := registry.Bind(facade.RolePrimary, storage); err != nil {
		return err
	}
	defer registry.Close()

	primary, err := registry.Use(facade.RolePrimary)
	if err != nil {
		return err
	}

	addr := c.String("addr")
	log.Infof("listening on %s", addr)
	return http.ListenAndServe(addr, httpapi.NewServer(primary))
}
