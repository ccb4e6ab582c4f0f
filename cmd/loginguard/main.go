package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/accelerated-industries/loginguard/internal/auth"
	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/config"
	"github.com/accelerated-industries/loginguard/internal/guard"
	"github.com/accelerated-industries/loginguard/internal/jail"
	"github.com/accelerated-industries/loginguard/internal/logging"
	"github.com/accelerated-industries/loginguard/internal/server"
	"github.com/accelerated-industries/loginguard/internal/supervisor"
)

var (
	version = "0.1.0-dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "hash-password":
			if err := hashPassword(os.Stdin, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "hash-password: %v\n", err)
				os.Exit(1)
			}
			return
		case "gen-secret":
			if len(os.Args) != 3 {
				fmt.Fprintln(os.Stderr, "usage: loginguard gen-secret <path>")
				os.Exit(2)
			}
			if err := genSecret(os.Args[2]); err != nil {
				fmt.Fprintf(os.Stderr, "gen-secret: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	// Parse command-line flags
	configFile := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("loginguard v%s\n", version)
		return
	}

	if err := run(*configFile); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "loginguard: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Logging.Format, cfg.Logging.Level, os.Stderr)
	logger.Info("main", "starting", map[string]interface{}{
		"version":                      version,
		"config_file":                  configFile,
		"human_plausibility_threshold": cfg.Guard.HumanPlausibilityThreshold.String(),
		"investigation_lifespan":       cfg.Guard.InvestigationLifespan.String(),
		"ban_sentence":                 cfg.Guard.BanSentence.String(),
	})

	clk := clock.System{}
	j := jail.New(clk, logger)
	g := guard.New(cfg.Guard, clk, j, logger)

	srv := server.NewServer(j, g.Store, server.Config{
		Version: version,
		Clock:   clk,
		Logger:  logger,
	})
	srv.SetConfig(cfg)

	if cfg.Auth.Enabled {
		am, err := auth.NewAuthManager(cfg, g.Gate, j, clk, logger)
		if err != nil {
			return err
		}
		srv.SetAuthManager(am)
	}

	tree := supervisor.NewTree(logger, supervisor.DefaultTreeConfig())
	tree.AddGuardService(g.Sweeper)
	tree.AddGuardService(jail.NewReaper(j, cfg.Jail.ReapInterval))
	tree.AddAPIService(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := tree.Serve(ctx)
	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		names := make([]string, 0, len(unstopped))
		for _, svc := range unstopped {
			names = append(names, svc.Name)
		}
		logger.Warn("main", "services_not_stopped", map[string]interface{}{
			"services": names,
		})
	}
	logger.Info("main", "stopped", nil)
	return err
}

// hashPassword reads one password line from in and writes its bcrypt hash
func hashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

// genSecret writes a fresh JWT signing secret to path, refusing to overwrite
func genSecret(path string) error {
	secret, err := auth.GenerateSecret()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(config.ExpandPath(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create secret file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(secret); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	return nil
}
