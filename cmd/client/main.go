package main

import (
	"flag"
	"fmt"
	"os"

	"roomcast/internal/app"
)

func main() {
	defaultServer := envOrDefault("ROOMCAST_SERVER", "ws://localhost:8080/ws")
	defaultUser := envOrDefault("ROOMCAST_USER", "")

	serverWSURL := flag.String("server", defaultServer, "WebSocket URL (e.g., ws://localhost:8080/ws)")
	username := flag.String("user", defaultUser, "display name")
	role := flag.String("role", "user", "participant role: user or admin")
	flag.Parse()

	args := flag.Args()
	var room string
	if len(args) >= 1 {
		room = args[0]
	}

	cfg := app.ClientConfig{
		ServerURL: *serverWSURL,
		Username:  *username,
		Role:      *role,
		Room:      room,
	}

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
