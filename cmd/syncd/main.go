package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/obralink/obralink/internal/buildinfo"
	"github.com/obralink/obralink/internal/client"
	"github.com/obralink/obralink/internal/client/cache"
	"github.com/obralink/obralink/internal/client/config"
	"github.com/obralink/obralink/internal/client/remote"
	"github.com/obralink/obralink/internal/common"
	"github.com/obralink/obralink/internal/flagx"
	"github.com/obralink/obralink/internal/logging"
)

func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// establishSession reuses the persisted session when one exists, otherwise
// prompts for credentials. With doRegister set it always creates a fresh
// tenant first.
func establishSession(ctx context.Context, dev *client.Device, store cache.Store,
	rc *remote.HTTPClient, doRegister bool) error {

	if !doRegister {
		if sess, err := store.Session(ctx); err == nil {
			rc.SetToken(sess.AccessToken)
			return nil
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}

	username, err := readLine("Username: ")
	if err != nil {
		return err
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	if doRegister {
		companyName, err := readLine("Company name: ")
		if err != nil {
			return err
		}
		_, err = dev.Register(ctx, username, password, companyName)
		return err
	}

	_, err = dev.Login(ctx, username, password)
	return err
}

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()

	fs := flag.NewFlagSet("syncd", flag.ExitOnError)
	doRegister := fs.Bool("register", false, "register a new tenant before syncing")
	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-register"})); err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.Open(ctx, cfg.CacheDSN)
	if err != nil {
		log.Fatalf("failed to open local cache: %v", err)
	}
	defer store.Close()

	rc := remote.NewHTTPClient(cfg.ServerEndpointAddr, logger)
	dev := client.NewDevice(cfg, store, rc, logger)
	defer dev.Close()

	if err := establishSession(ctx, dev, store, rc, *doRegister); err != nil {
		log.Fatalf("failed to establish session: %v", err)
	}

	if err := dev.Sync(ctx); err != nil {
		log.Fatalf("sync stopped: %v", err)
	}
}
