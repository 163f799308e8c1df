package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/guseggert/procbridge/bridge"
	"github.com/guseggert/procbridge/codec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "bridgectl",
		Usage: "send one request to a line-delimited worker process and print the decoded response",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "worker",
				Usage: "Worker command to spawn.",
			},
			&cli.StringSliceFlag{
				Name:  "arg",
				Usage: "Argument for the worker command. Repeatable.",
			},
			&cli.StringSliceFlag{
				Name:  "env",
				Usage: "KEY=VALUE environment entry for the worker. Repeatable.",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Working directory for the worker.",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML worker config file. Flags override its values.",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-request timeout.",
				Value: 30 * time.Second,
			},
			&cli.IntFlag{
				Name:  "max-restarts",
				Usage: "Consecutive worker restarts to tolerate before giving up.",
				Value: bridge.DefaultMaxRestarts,
			},
			&cli.DurationFlag{
				Name:  "restart-delay",
				Usage: "Base delay between worker restarts.",
				Value: bridge.DefaultRestartDelay,
			},
			&cli.BoolFlag{
				Name:  "toon",
				Usage: "Print the response in TOON form instead of JSON.",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging.",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "If set, serve Prometheus metrics at this address under /metrics.",
			},
		},
		ArgsUsage: "[request JSON; read from stdin if omitted]",
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	envelope, err := readEnvelope(ctx)
	if err != nil {
		return err
	}

	logger, err := buildLogger(ctx.Bool("debug"))
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	opts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithMaxRestarts(ctx.Int("max-restarts")),
		bridge.WithRestartDelay(ctx.Duration("restart-delay")),
		bridge.WithDefaultTimeout(ctx.Duration("timeout")),
	}
	if addr := ctx.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, bridge.WithMetrics(bridge.NewMetrics(reg)))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Sugar().Errorf("metrics server stopped: %s", err)
			}
		}()
	}

	b, err := bridge.New(cfg.launcher(), opts...)
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.Call(ctx.Context, "request", envelope, ctx.Duration("timeout"))
	if err != nil {
		return err
	}

	if ctx.Bool("toon") {
		fmt.Println(codec.EncodeTOON(res))
		return nil
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func readEnvelope(ctx *cli.Context) (map[string]any, error) {
	raw := ctx.Args().First()
	if raw == "" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return nil, fmt.Errorf("no request given as argument or on stdin")
		}
		raw = scanner.Text()
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("parsing request JSON: %w", err)
	}
	return envelope, nil
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
