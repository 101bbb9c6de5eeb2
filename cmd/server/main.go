package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"roomcast/internal/app"
)

func main() {
	addr := flag.String("addr", getEnv("ROOMCAST_ADDR", ":8080"), "server listen address")
	path := flag.String("path", getEnv("ROOMCAST_PATH", "/ws"), "websocket endpoint path")
	rooms := flag.String("rooms", getEnv("ROOMCAST_ROOMS", app.DefaultRooms), "comma-separated closed room set")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, app.ServerConfig{
		Addr:  *addr,
		Path:  *path,
		Rooms: app.ParseRooms(*rooms),
	})
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("Roomcast server listening on %s%s (rooms: %s)", handle.Addr(), *path, *rooms)
	if err := handle.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
