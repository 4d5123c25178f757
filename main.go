package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.IsHost {
		// The join flow lives in the game client; this binary only hosts.
		log.Fatalf("nothing to do: -host=false (join target %q is a client-side concern)", cfg.JoinTarget)
	}

	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	directory := NewDirectory(cfg.RegistryPath())
	session := HostSession(cfg, directory, db)
	go session.Heartbeat()

	hub := NewHub(session, directory, NewScaleMonitor(cfg), db)
	go hub.Run()

	mux := SetupRoutes(hub)
	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	// Graceful shutdown on signal or on the session's control marker
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	control := NewControlListener(cfg.ControlDir(), session.ID, directory, func() {
		stop <- syscall.SIGTERM
	})
	go control.Run()

	go func() {
		log.Printf("session %s (%s) listening on %s, scene %s, capacity %d",
			session.ID, session.Name, cfg.ListenAddr, cfg.SceneName, cfg.MaxPlayers)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	control.Stop()
	session.Close()
	server.Close()
}
