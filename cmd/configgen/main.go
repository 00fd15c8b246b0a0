package main

import (
	"flag"
	"log"

	"github.com/danmuck/inkrelay/internal/config"
)

func defaultPath(kind string) string {
	switch kind {
	case config.KindRelayd:
		return "cmd/relayd/config.toml"
	case config.KindInkctl:
		return "cmd/inkctl/config.toml"
	}
	log.Fatalf("unknown kind: %s", kind)
	return ""
}

func main() {
	kind := flag.String("kind", config.KindRelayd, "config kind: relayd|inkctl")
	output := flag.String("out", "", "output path for config template (defaults to per-kind cmd path)")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		var err error
		switch *kind {
		case config.KindRelayd:
			_, err = config.Load(path)
		case config.KindInkctl:
			_, err = config.LoadHost(path)
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
