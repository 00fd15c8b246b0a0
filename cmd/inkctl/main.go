package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/danmuck/inkrelay/internal/client"
	"github.com/danmuck/inkrelay/internal/config"
	"github.com/danmuck/inkrelay/internal/logging"
	"github.com/danmuck/inkrelay/internal/scene"
	"github.com/danmuck/inkrelay/internal/transport"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "cmd/inkctl/config.toml"

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: inkctl [flags] <verb> [args...]\n\nverbs:\n")
	for _, name := range scene.Ops() {
		fmt.Fprintf(out, "  %s\n", scene.Usage(name))
	}
	fmt.Fprintf(out, "  play scene.json\n  repl\n  dump capture.cbor\n  ports\n\nflags:\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "inkctl config path")
	addr := flag.String("addr", "", "relay TCP address; overrides the configured link")
	port := flag.String("port", "", "serial device; overrides the configured link")
	baud := flag.Int("baud", 0, "serial baud rate")
	timeout := flag.Duration("timeout", 0, "query timeout")
	retries := flag.Int("retries", -1, "query re-sends after a timeout")
	flag.Usage = usage
	flag.Parse()

	logging.ConfigureRuntime("inkctl")
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	// verbs that never touch the link
	switch args[0] {
	case "dump":
		if len(args) != 2 {
			fatalf("usage: inkctl dump capture.cbor")
		}
		if err := dump(os.Stdout, args[1]); err != nil {
			fatalf("%v", err)
		}
		return
	case "ports":
		ports, err := transport.Ports()
		if err != nil {
			fatalf("list ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadHost(*configPath)
	if err != nil {
		fatalf("%v", err)
	}
	switch {
	case *addr != "":
		cfg.Link.Kind = transport.KindTCP
		cfg.Link.Address = *addr
	case *port != "":
		cfg.Link.Kind = transport.KindSerial
		cfg.Link.Port = *port
	}
	if *baud > 0 {
		cfg.Link.Baud = *baud
	}
	if *timeout > 0 {
		cfg.QueryTimeout = *timeout
	}
	if *retries >= 0 {
		cfg.Retries = *retries
	}
	if err := config.ValidateHost(cfg); err != nil {
		fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg, args)
	stop()
	if err != nil {
		fatalf("%v", err)
	}
}

// loadHost reads the config file, falling back to defaults when the default path is absent.
func loadHost(path string) (config.HostConfig, error) {
	cfg, err := config.LoadHost(path)
	if err == nil {
		log.Debug().Str("path", path).Msg("loaded inkctl config")
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		return config.DefaultHost(), nil
	}
	return config.HostConfig{}, err
}

func run(ctx context.Context, cfg config.HostConfig, args []string) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	link, err := transport.Dial(dialCtx, cfg.Link)
	cancel()
	if err != nil {
		return err
	}
	c := client.New(link, client.Options{QueryTimeout: cfg.QueryTimeout, Retries: cfg.Retries})
	if cfg.Link.Kind != transport.KindStdio {
		defer c.Close()
	}

	switch args[0] {
	case "play":
		if len(args) != 2 {
			return errors.New("usage: inkctl play scene.json")
		}
		return play(ctx, c, args[1])
	case "repl":
		return repl(ctx, c, os.Stdin, os.Stdout)
	}
	return runStep(ctx, c, args)
}

func runStep(ctx context.Context, c *client.Client, words []string) error {
	st, err := scene.ParseStep(words)
	if err != nil {
		return err
	}
	v, err := scene.RunStep(ctx, c, st)
	if err != nil {
		return err
	}
	if v != "" {
		fmt.Println(v)
	}
	return nil
}

func play(ctx context.Context, c *client.Client, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	s, err := scene.Load(f)
	if err != nil {
		return err
	}
	results, err := scene.Play(ctx, c, s)
	for _, r := range results {
		fmt.Printf("step %d %s: %s\n", r.Step, r.Op, r.Value)
	}
	return err
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "inkctl: "+strings.TrimSuffix(format, "\n")+"\n", args...)
	os.Exit(1)
}
