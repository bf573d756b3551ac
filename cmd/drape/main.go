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
	"runtime"
	"syscall"

	C "drape.com/drape/cloth"
	"drape.com/drape/app"
	"drape.com/drape/config"
	"drape.com/drape/stream"
)

const usage = `usage: drape <command> [flags]

commands:
  view    open the cloth in a window
  serve   run the cloth and stream it over websocket
  run     step the cloth headless and report
  config  print the effective configuration
`

func init() {
	//glfw and GL calls must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "drape:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("bad usage")

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}
	cmd, args := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", config.DefaultPath, "config file")
	steps := fs.Int("steps", 300, "steps for run")
	watch := fs.Bool("watch", true, "reload cloth parameters when the config file changes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.InitEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	logger := cfg.Log.Logger(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "view":
		return view(ctx, cfg, *cfgPath, *watch, logger)
	case "serve":
		return serve(ctx, cfg, *cfgPath, *watch, logger)
	case "run":
		rep, err := Headless(ctx, cfg.Cloth, *steps, logger)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, rep.String())
		return nil
	case "config":
		return config.Encode(stdout, cfg)
	}
	fmt.Fprint(stderr, usage)
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func view(ctx context.Context, cfg config.Config, path string, watch bool, logger *slog.Logger) error {
	cloth, err := C.New(cfg.Cloth)
	if err != nil {
		return err
	}
	viewer := app.NewViewer(cloth, cfg.View, logger)
	if watch {
		go watchCloth(ctx, path, logger, func(c C.Config) {
			select {
			case viewer.Retune <- c:
			default:
			}
		})
	}
	return viewer.Run(ctx)
}

func serve(ctx context.Context, cfg config.Config, path string, watch bool, logger *slog.Logger) error {
	cloth, err := C.New(cfg.Cloth)
	if err != nil {
		return err
	}
	sim := stream.NewSim(cloth, cfg.Stream, logger)
	go sim.Run(ctx)
	if watch {
		go watchCloth(ctx, path, logger, func(c C.Config) {
			sim.Submit(ctx, stream.Retune{Config: c})
		})
	}
	return stream.NewServer(sim, cfg.Stream, logger).ListenAndServe(ctx)
}

func watchCloth(ctx context.Context, path string, logger *slog.Logger, fn func(C.Config)) {
	err := config.Watch(ctx, path, logger, func(c config.Config) { fn(c.Cloth) })
	if err != nil {
		logger.Warn("config watch disabled", "err", err)
	}
}
