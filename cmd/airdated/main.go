package main

import (
	"context"
	"log"
	"os"

	"airdate/internal/config"
	"airdate/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("AIRDATE_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("airdated: %v", err)
	}
}
