package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/apiwire-hq/apiwire/internal/app"
	"github.com/apiwire-hq/apiwire/internal/config"
	"github.com/apiwire-hq/apiwire/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "apiwire: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: apiwire <service> <endpoint> [key=value ...]")
	}
	serviceID, endpointID := args[0], args[1]

	query, err := parseQueryArgs(args[2:])
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	raw, err := rt.Invoke(ctx, serviceID, endpointID, query)
	if err != nil {
		return fmt.Errorf("invoke %s/%s: %w", serviceID, endpointID, err)
	}

	var pretty json.RawMessage = raw
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		// Payload already validated as JSON; print it as-is if re-indent fails.
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(string(out))
	return nil
}

func parseQueryArgs(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	query := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("query argument %q is not key=value", arg)
		}
		query[k] = v
	}
	return query, nil
}
