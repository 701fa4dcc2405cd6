// Command ledger_sync manages the client-side offline queue: it records
// mutations made without connectivity and replays them against a ledger_backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/ledger_engine/internal/offline"
	"github.com/SscSPs/ledger_engine/internal/platform/config"
	"github.com/spf13/pflag"
)

const usage = `Usage: ledger_sync <command> [flags]

Commands:
  enqueue       queue an operation envelope read from --file or stdin
  drain         replay the queue once against the server
  watch         ping the server and drain whenever it is reachable
  status        print queue counts
  balances      print the last account balances the server reported
  failed        list items that were rejected permanently
  clear-failed  drop rejected items
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadSyncConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("Command failed", slog.String("command", os.Args[1]), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.SyncConfig, logger *slog.Logger, command string, args []string) error {
	store, err := offline.OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	remote := offline.NewHTTPRemote(cfg.ServerURL, cfg.Token, nil)
	r := offline.NewReconciler(store, remote, logger,
		offline.WithMaxAttempts(cfg.MaxAttempts),
		offline.WithPassTimeout(cfg.PassTimeout),
	)

	switch command {
	case "enqueue":
		return enqueue(ctx, r, cfg, args)
	case "drain":
		return drain(ctx, r)
	case "watch":
		return watch(ctx, r, remote, logger, args)
	case "status":
		st, err := r.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(st)
	case "balances":
		if cfg.OwnerID == "" {
			return fmt.Errorf("balances needs an owner id")
		}
		balances, err := store.MirrorBalances(ctx, cfg.OwnerID)
		if err != nil {
			return err
		}
		return printJSON(balances)
	case "failed":
		return listFailed(ctx, store)
	case "clear-failed":
		n, err := r.ClearFailed(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]int{"cleared": n})
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func enqueue(ctx context.Context, r *offline.Reconciler, cfg *config.SyncConfig, args []string) error {
	fs := pflag.NewFlagSet("enqueue", pflag.ContinueOnError)
	file := fs.StringP("file", "f", "-", "operation envelope to queue, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read operation: %w", err)
	}
	op, err := offline.DecodeOperation(data)
	if err != nil {
		return err
	}
	if cfg.OwnerID != "" && op.Owner() != cfg.OwnerID {
		return fmt.Errorf("operation is for owner %q but this queue belongs to %q", op.Owner(), cfg.OwnerID)
	}

	item, err := r.Enqueue(ctx, op)
	if err != nil {
		return err
	}
	envelope, err := offline.EncodeOperation(item.Op)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"itemID":    item.ID,
		"queuedAt":  item.QueuedAt,
		"operation": json.RawMessage(envelope),
	})
}

// drain replays the queue once. An interrupt aborts the pass; items not yet
// replayed stay queued.
func drain(ctx context.Context, r *offline.Reconciler) error {
	passCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			r.Abort()
		case <-passCtx.Done():
		}
	}()

	report, err := r.SetOnline(passCtx, true)
	if report != nil {
		if perr := printJSON(report); perr != nil {
			return perr
		}
	}
	return err
}

// watch polls the server's health endpoint and feeds connectivity changes to
// the reconciler. While online, each tick retries whatever is still pending.
func watch(ctx context.Context, r *offline.Reconciler, remote *offline.HTTPRemote, logger *slog.Logger, args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	interval := fs.DurationP("interval", "i", 15*time.Second, "time between health checks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", *interval)
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		pingCtx, cancel := context.WithTimeout(ctx, *interval)
		err := remote.Ping(pingCtx)
		cancel()

		if err != nil {
			logger.Debug("Server unreachable", slog.String("error", err.Error()))
			_, _ = r.SetOnline(ctx, false)
		} else {
			go drainOnline(ctx, r, logger)
		}

		select {
		case <-ctx.Done():
			r.Abort()
			return nil
		case <-ticker.C:
		}
	}
}

func drainOnline(ctx context.Context, r *offline.Reconciler, logger *slog.Logger) {
	report, err := r.SetOnline(ctx, true)
	if report == nil && err == nil {
		// Already online; pick up retries and newly queued items.
		_, err = r.Drain(ctx)
	}
	if err != nil && !errors.Is(err, offline.ErrSyncInProgress) {
		logger.Warn("Drain pass ended early", slog.String("error", err.Error()))
	}
}

type failedItem struct {
	ItemID    string          `json:"itemID"`
	Kind      offline.OpKind  `json:"kind"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"lastError"`
	QueuedAt  time.Time       `json:"queuedAt"`
	Operation json.RawMessage `json:"operation"`
}

func listFailed(ctx context.Context, store *offline.Store) error {
	items, err := store.Failed(ctx)
	if err != nil {
		return err
	}
	out := make([]failedItem, 0, len(items))
	for _, it := range items {
		envelope, err := offline.EncodeOperation(it.Op)
		if err != nil {
			return err
		}
		out = append(out, failedItem{
			ItemID:    it.ID,
			Kind:      it.Op.Kind(),
			Attempts:  it.Attempts,
			LastError: it.LastError,
			QueuedAt:  it.QueuedAt,
			Operation: envelope,
		})
	}
	return printJSON(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
