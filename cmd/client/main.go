// Command client is a headless bot. It joins a game server and wanders, or
// with -list prints the servers a master knows about.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/benruijl/walledin/internal/app"
	"github.com/benruijl/walledin/internal/client"
	"github.com/benruijl/walledin/internal/config"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/world"
)

func main() {
	cfg, err := config.Loader{Logger: telemetry.WrapLogger(log.Default())}.Client()
	if err != nil {
		log.Fatalf("%v", err)
	}

	list := flag.Bool("list", false, "list the servers registered with the master and exit")
	flag.StringVar(&cfg.Agent.Server, "server", cfg.Agent.Server, "game server host:port")
	flag.StringVar(&cfg.Agent.Name, "name", cfg.Agent.Name, "player name")
	flag.StringVar(&cfg.Master, "master", cfg.Master, "master server host:port")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *list {
		servers, err := app.ListServers(ctx, cfg, log.Default())
		if err != nil {
			log.Fatalf("%v", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tNAME\tPLAYERS\tMODE")
		for _, s := range servers {
			fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", s.Addr, s.Name, s.Players, s.MaxPlayers, s.Mode)
		}
		w.Flush()
		return
	}

	if err := app.RunClient(ctx, cfg, newWanderer(time.Second), newReporter(5*time.Second), log.Default()); err != nil {
		log.Fatalf("%v", err)
	}
}

// wanderer holds one direction key and picks a new one every period.
type wanderer struct {
	period  time.Duration
	rng     *rand.Rand
	key     uint16
	changed time.Time
}

func newWanderer(period time.Duration) *wanderer {
	return &wanderer{period: period, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (w *wanderer) Keys() []uint16 {
	if now := time.Now(); now.Sub(w.changed) >= w.period {
		w.changed = now
		w.key = world.KeyUp + uint16(w.rng.Intn(4))
	}
	return []uint16{w.key}
}

type reporter struct {
	every time.Duration
	last  time.Time
}

func newReporter(every time.Duration) *reporter {
	return &reporter{every: every}
}

func (r *reporter) Render(f client.Frame) {
	if f.At.Sub(r.last) < r.every {
		return
	}
	r.last = f.At
	if !f.Joined {
		log.Printf("waiting for the server to accept the login")
		return
	}
	log.Printf("mirror holds %d entities", len(f.Entities))
}
