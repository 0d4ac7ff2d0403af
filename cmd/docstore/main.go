package main

import (
	"flag"
	"log"

	"github.com/Zereker/docstore/internal/server"
)

var (
	configFile = flag.String("config", "configs/config.toml", "Path to config file")
)

func init() {
	flag.Parse()
}

func main() {
	conf, err := server.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	srv, err := server.NewServer(conf)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	defer func() {
		if err := srv.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
