// analyze builds the post-event report for one room.
//
//	analyze [flags] ROOM_ID [START_ISO END_ISO]
//
// The room's data is read from Redis (--redis-url, default $REDIS_URL) or
// from a JSON export of the store (--snapshot). The event window is the
// explicit START/END pair when given, else the room's metadata, else the
// global event config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"live-auction/internal/analytics"
	"live-auction/internal/config"
	"live-auction/internal/report"
	"live-auction/internal/repository"

	"github.com/spf13/pflag"
)

const fetchTimeout = 30 * time.Second

var errUsage = errors.New("usage: analyze [flags] ROOM_ID [START_ISO END_ISO]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	inventory string
	redisURL  string
	snapshot  string
	outDir    string
	timezone  string
	writeJSON bool
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg := config.Load()

	var opts options
	flagSet := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	flagSet.StringVar(&opts.inventory, "inventory", cfg.InventoryPath, "inventory CSV with Name and Price columns")
	flagSet.StringVar(&opts.redisURL, "redis-url", cfg.RedisURL, "Redis URL of the live store")
	flagSet.StringVar(&opts.snapshot, "snapshot", "", "read a JSON export of the store instead of Redis")
	flagSet.StringVar(&opts.outDir, "out", ".", "directory the report is written to")
	flagSet.StringVar(&opts.timezone, "tz", "Local", "time zone for chart labels and zone-less START/END")
	flagSet.BoolVar(&opts.writeJSON, "json", false, "also write the raw metrics as JSON")
	flagSet.SetOutput(stdout)

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	positional := flagSet.Args()
	if len(positional) == 0 {
		return fmt.Errorf("room id is required\n%w", errUsage)
	}
	if len(positional) != 1 && len(positional) != 3 {
		return errUsage
	}
	roomID := positional[0]

	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("unknown time zone %q: %w", opts.timezone, err)
	}

	var explicit *analytics.Window
	if len(positional) == 3 {
		w, err := analytics.ParseWindow(positional[1], positional[2], loc)
		if err != nil {
			return err
		}
		explicit = &w
	}

	inventory, err := analytics.LoadInventory(opts.inventory)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	repo, err := openSource(ctx, opts)
	if err != nil {
		return err
	}
	defer repo.Close()

	fmt.Fprintf(stdout, "Fetching data for %s...\n", roomID)
	src, err := analytics.NewLoader(repo).Load(ctx, roomID)
	if err != nil {
		return err
	}

	metrics, err := analytics.Analyze(roomID, src, explicit, inventory, time.Now(), loc)
	if err != nil {
		return err
	}

	path, err := report.WriteHTML(opts.outDir, metrics, loc)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Report generated: %s\n", path)

	if opts.writeJSON {
		path, err := report.WriteJSON(opts.outDir, metrics)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Metrics written: %s\n", path)
	}
	return nil
}

// openSource returns the snapshot store when one is given, else Redis
func openSource(ctx context.Context, opts options) (repository.RealtimeDB, error) {
	if opts.snapshot != "" {
		raw, err := os.ReadFile(opts.snapshot)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		repo := repository.NewMemoryRepo()
		if err := repo.Import(raw); err != nil {
			return nil, err
		}
		return repo, nil
	}
	if opts.redisURL == "" {
		return nil, errors.New("no data source: set --redis-url, REDIS_URL or --snapshot")
	}
	return repository.NewRedisRepo(ctx, opts.redisURL, repository.RedisOptions{})
}
