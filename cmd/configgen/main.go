package main

import (
	"flag"
	"log"
	"strings"

	"github.com/danmuck/refctl/internal/config"
)

func main() {
	kind := flag.String("kind", "refctl", "config kind: refctl|gcwatch|variant[:name]")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	k := strings.ToLower(strings.TrimSpace(*kind))

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(k)
		}
		switch {
		case k == "refctl":
			if _, err := config.ValidateControllerFile(path); err != nil {
				log.Fatal(err)
			}
		case k == "gcwatch":
			if _, err := config.LoadWatchConfig(path); err != nil {
				log.Fatal(err)
			}
		case isVariant(k):
			v, err := config.LoadVariant(path)
			if err != nil {
				log.Fatal(err)
			}
			log.Printf("Variant %s: league=%d players=%d coach=%t", v.Name, v.League, v.PlayersPerTeam, v.HasCoach)
		default:
			log.Fatalf("unknown kind: %s", k)
		}
		log.Printf("Validated %s config at %s", k, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(k)
	}
	if err := config.WriteTemplate(target, k, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", k, target)
}

func isVariant(kind string) bool {
	return kind == "variant" || strings.HasPrefix(kind, "variant:")
}

func defaultPath(kind string) string {
	switch {
	case kind == "refctl":
		return "cmd/refctl/config.toml"
	case kind == "gcwatch":
		return "cmd/gcwatch/config.toml"
	case isVariant(kind):
		return "cmd/refctl/variant.toml"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}
