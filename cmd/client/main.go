package main

import (
	"flag"
	"log"
	"os"
	"time"

	"distworld.dev/internal/config"
	"distworld.dev/internal/do"
	"distworld.dev/internal/game"
	"distworld.dev/internal/sim"
	"distworld.dev/internal/transport/ws"
)

// Headless demo client: connects, logs in, waits for its avatar's owner view
// and then wanders by cycling movement intents.
func main() {
	var (
		url        = flag.String("url", "ws://127.0.0.1:7198/v1/ws", "gateway websocket url")
		configPath = flag.String("config", "", "cluster config path (defaults apply when empty)")
		username   = flag.String("user", "guest", "account name")
		password   = flag.String("pass", "guest", "account password")
		duration   = flag.Duration("duration", 30*time.Second, "how long to stay connected")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[client] ", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Defaults()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
	}

	conn, err := ws.Dial(*url, *username, logger)
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}
	logger.Printf("connected as channel %d", conn.Channel())

	done := make(chan struct{})
	conn.SetOnClose(func(err error) {
		if err != nil {
			logger.Printf("connection lost: %v", err)
		}
		close(done)
	})

	repo := do.NewRepository(game.ClientClasses(cfg, logger), conn, logger)
	ejected := false
	repo.OnEject = func(code uint16, reason string) {
		logger.Printf("ejected (%d): %s", code, reason)
		ejected = true
	}

	var ownerView *game.AvatarOV
	repo.OnEnter = func(v do.View) {
		switch av := v.(type) {
		case *game.AvatarOV:
			logger.Printf("received avatar owner view %d", av.DoID())
			ownerView = av
		case *game.Avatar:
			logger.Printf("avatar %d entered", av.DoID())
		}
	}

	contactView, err := repo.CreateView(game.ClassAnonymousContact, cfg.IDs.AnonymousContact, 0, 0, do.RolePlain)
	if err != nil {
		logger.Fatalf("contact view: %v", err)
	}
	contact := contactView.(*game.AnonymousContact)

	loop := sim.NewFrameLoop(repo)
	avatarReady := false
	loop.AddCompletion(func() bool {
		if ownerView == nil {
			return false
		}
		avatarReady = true
		logger.Printf("avatar complete; wandering")
		return true
	})

	logger.Printf("logging in as %q", *username)
	contact.Login(*username, *password)

	// Cooperative frame loop with a scripted wander: forward with a slow
	// turn, reversing every few seconds.
	frame := time.NewTicker(time.Second / time.Duration(cfg.ClientFrameHz))
	defer frame.Stop()
	wander := time.NewTicker(4 * time.Second)
	defer wander.Stop()
	deadline := time.After(*duration)
	dir := 1.0
	var lastPose sim.Pose

	for {
		select {
		case <-done:
			if ejected {
				os.Exit(1)
			}
			return
		case <-deadline:
			logger.Printf("done; disconnecting")
			repo.SendDisconnect()
			_ = conn.Close()
			return
		case <-wander.C:
			dir = -dir
			if avatarReady {
				ownerView.IndicateIntent(0.25*dir, 1)
			}
		case <-frame.C:
			loop.Frame()
			if avatarReady && ownerView != nil && ownerView.Pose != lastPose {
				lastPose = ownerView.Pose
				logger.Printf("pose x=%.3f y=%.3f z=%.3f h=%.0f", lastPose.X, lastPose.Y, lastPose.Z, lastPose.H)
			}
		}
	}
}
