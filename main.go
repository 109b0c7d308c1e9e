package main

import (
	"flag"
	"log"

	"cfadmin/internal/config"
	"cfadmin/internal/server"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("=== cfadmin — Cloudflare DNS Admin ===")
	log.Printf("Version: %s", version)
	log.Printf("Listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Cloudflare API base: %s", cfg.Cloudflare.APIBase)

	if err := server.Start(cfg, version); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
