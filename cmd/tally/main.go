package main

import (
	"flag"
	"log"
	"os"
	"tally/internal/di"
	"tally/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	var archives bool
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the yaml config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "mirror logs to stdout")
	flag.BoolVar(&archives, "archives", false, "print archived activity events as JSON lines and exit")
	flag.Parse()

	if archives {
		dumpArchives(flags)
		return
	}

	_, cleanup, err := di.InitApp(flags)
	if err != nil {
		log.Fatalf("tally: %s", err)
	}
	cleanup()
}

func dumpArchives(flags *structures.CliFlags) {
	archiver, cleanup, err := di.InitArchiver(flags)
	if err != nil {
		log.Fatalf("tally: %s", err)
	}
	n, err := archiver.Dump(os.Stdout)
	cleanup()
	if err != nil {
		log.Fatalf("tally: %s", err)
	}
	log.Printf("tally: %d archived events", n)
}
