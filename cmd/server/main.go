package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"duotris/internal/room"
	"duotris/internal/server"
	"duotris/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	addr := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}

	dbPath := "duotris.db"
	if p := os.Getenv("DB_PATH"); p != "" {
		dbPath = p
	}

	framerate := room.DefaultFramerate
	if f := os.Getenv("FRAMERATE"); f != "" {
		n, err := strconv.Atoi(f)
		if err != nil || n <= 0 {
			log.Fatalf("invalid FRAMERATE %q", f)
		}
		framerate = n
	}

	store, err := storage.New(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	hub := room.NewHub(store)

	loop := room.NewLoop(hub, framerate)
	go loop.Run()
	defer loop.Stop()

	srv := server.New(hub)

	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatalf("server: %v", err)
	}
}
