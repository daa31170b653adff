// Package main is the entry point for roomsep.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(); err != nil {
		// Not fatal - env vars might be set directly
		if !os.IsNotExist(err) {
			log.Printf("Note: .env file not loaded: %v", err)
		}
	}

	setupOTelEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupOTelEnv points the OTLP exporter at Honeycomb when an API key is
// present and no endpoint has been chosen explicitly.
func setupOTelEnv() {
	apiKey := os.Getenv("HONEYCOMB_ROOMSEP_API_KEY")
	if apiKey == "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		return
	}

	dataset := os.Getenv("HONEYCOMB_ROOMSEP_DATASET")
	if dataset == "" {
		dataset = "roomsep" // default dataset name
	}
	os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://api.honeycomb.io")
	os.Setenv("OTEL_EXPORTER_OTLP_HEADERS",
		fmt.Sprintf("x-honeycomb-team=%s,x-honeycomb-dataset=%s", apiKey, dataset))
}
