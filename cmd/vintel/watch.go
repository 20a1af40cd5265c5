// cmd/vintel/watch.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalnine/vintel/internal/agent"
	"github.com/signalnine/vintel/internal/cache"
	"github.com/signalnine/vintel/internal/chatparser"
	"github.com/signalnine/vintel/internal/intel"
	"github.com/signalnine/vintel/internal/lookup"
	"github.com/signalnine/vintel/internal/output"
	"github.com/signalnine/vintel/internal/server"
	"github.com/signalnine/vintel/internal/watcher"
)

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	bell, _ := cmd.Flags().GetBool("bell")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := loadMap(cfg)
	if err != nil {
		return err
	}

	c, err := cache.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer c.Close()

	gate := lookup.NewEveGate(cfg.ESIURL, cfg.ImageURL, c)
	kos := lookup.NewKOSQueue(lookup.NewKOSClient(cfg.KOSEndpoints, gate))
	opts := intel.Options{
		AlarmDistance: cfg.AlarmDistance,
		KOS:           kos,
		Cache:         c,
	}
	// portraits are only served by the status API
	var avatars *lookup.AvatarQueue
	if cfg.ListenAddr != "" {
		avatars = lookup.NewAvatarQueue(gate, c, cfg.AvatarSpacing)
		opts.Avatars = avatars
	}

	tracker := intel.New(m, output.NewTerminal(os.Stdout, bell), opts)
	if err := tracker.LoadKnownPlayers(); err != nil {
		log.Printf("Load known players: %v", err)
	}

	in := agent.NewIngester(chatparser.New(m, cfg.HistoryLimit), cfg.Rooms, cfg.LocalRooms)
	a := agent.New(cfg, in, tracker, tracker.Locker())
	if err := a.Prime(); err != nil {
		log.Printf("Prime error: %v", err)
	}
	w, err := watcher.New(cfg.LogDir, cfg.MaxLogAge, cfg.PollInterval)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Printf("%s stopped: %v", name, err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(ctx)
	}()
	spawn("KOS queue", kos.Run)
	spawn("KOS results", func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case res := <-kos.Results:
				tracker.HandleKOS(res)
			}
		}
	})
	if avatars != nil {
		spawn("Avatar queue", avatars.Run)
		spawn("Avatar results", func(ctx context.Context) error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case res := <-avatars.Results:
					if res.Err != nil {
						log.Printf("Avatar for %s: %v", res.Charname, res.Err)
					}
				}
			}
		})
		srv := server.NewServer(cfg, server.NewHandler(tracker, c, kos, cfg.APIKey))
		spawn("Status API", srv.Run)
	}

	err = a.Run(ctx, w.Events)
	stop()
	wg.Wait()

	if err := tracker.SaveKnownPlayers(); err != nil {
		log.Printf("Save known players: %v", err)
	}
	return err
}
