// Command storectl operates a persisted counter store.
//
//	storectl [-config store.toml] get|inc|dec|reset|eval <expr>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	store "github.com/goliatone/go-store"
	"github.com/goliatone/go-store/internal/config"
	"github.com/goliatone/go-store/internal/counter"
	"github.com/goliatone/go-store/pkg/activity"
	"github.com/goliatone/go-store/pkg/codec"
	"github.com/goliatone/go-store/pkg/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "storectl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("storectl", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configFile := flags.String("config", "", "optional TOML configuration file")
	engine := flags.String("engine", "expr", "rule engine for eval: expr, cel or js")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("command required: get, inc, dec, reset or eval")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, stderr)

	m, closeMedium, err := cfg.Medium.Open()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeMedium(); err != nil {
			logger.Warn("storectl: close medium", "error", err)
		}
	}()

	c, err := codec.ByName(cfg.Codec)
	if err != nil {
		return err
	}
	observer, err := telemetry.New()
	if err != nil {
		return err
	}
	evaluator, err := newEvaluator(*engine)
	if err != nil {
		return err
	}

	ctr, err := counter.New(
		store.WithKey(cfg.Key),
		store.WithMedium(m),
		store.WithCodec(c),
		store.WithLogger(logger),
		store.WithContext(ctx),
		store.WithObserver(observer),
		store.WithEvaluator(evaluator),
		store.WithEvaluatorLogger(store.SlogEvaluatorLogger(logger)),
		store.WithActivityHooks(activity.Hooks{activity.HookFunc(func(_ context.Context, event activity.Event) error {
			logger.Debug("storectl: activity", "verb", event.Verb, "object", event.ObjectID, "metadata", event.Metadata)
			return nil
		})}),
	)
	if err != nil {
		return err
	}

	switch cmd := flags.Arg(0); cmd {
	case "get":
	case "inc":
		ctr.Increment()
	case "dec":
		ctr.Decrement()
	case "reset":
		ctr.Reset()
	case "eval":
		expr := strings.Join(flags.Args()[1:], " ")
		if expr == "" {
			return errors.New("eval requires an expression")
		}
		res, err := ctr.Store().Evaluate(expr)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Value)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	fmt.Fprintln(stdout, ctr.Count())
	return nil
}

func newEvaluator(engine string) (store.Evaluator, error) {
	switch strings.ToLower(engine) {
	case "", "expr":
		return store.NewExprEvaluator(), nil
	case "cel":
		return store.NewCELEvaluator(), nil
	case "js":
		// nil without the js_eval build tag, which selects expr
		return store.NewJSEvaluator(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}

func newLogger(cfg config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
