package main

import (
	"context"
	"flag"
	"log"

	"crmgen/internal/app"
)

func main() {
	var opts app.Options
	flag.StringVar(&opts.ConfigPath, "config", "", "path to the configuration file")
	flag.StringVar(&opts.SchemaOut, "schema", "", "write the catalog JSON schema to this path and exit (\"-\" for stdout)")
	flag.BoolVar(&opts.Probe, "probe", false, "dial the adapter after validating the catalog")
	flag.Parse()
	opts.CatalogPaths = flag.Args()

	if err := app.Run(context.Background(), opts); err != nil {
		log.Fatalf("%v", err)
	}
}
