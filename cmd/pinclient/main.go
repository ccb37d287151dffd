package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "github.com/joho/godotenv/autoload"
	"github.com/jrsteele09/go-pin-client/api"
	"github.com/jrsteele09/go-pin-client/api/apifake"
	"github.com/jrsteele09/go-pin-client/appstate"
	"github.com/jrsteele09/go-pin-client/internal/config"
	"github.com/jrsteele09/go-pin-client/internal/telemetry"
	"github.com/jrsteele09/go-pin-client/server"
	"github.com/jrsteele09/go-pin-client/session"
	"github.com/jrsteele09/go-pin-client/storage"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "Demo@1234"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running client")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Client stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	reporter := telemetry.NewSentryReporter(c.GetSentryDSN(), c.GetEnv())
	defer reporter.Flush(2 * time.Second)

	repo, closeRepo, err := openStorage(c)
	if err != nil {
		return err
	}
	defer closeRepo()

	baseURL := c.GetAPIBaseURL()
	if c.GetDemoMode() {
		demo, err := startDemoBackend()
		if err != nil {
			return err
		}
		defer demo.Close()
		baseURL = "http://" + demo.Addr
	}

	client := api.New(baseURL, api.WithTimeout(c.GetRequestTimeout()), api.WithReporter(reporter))
	handler := server.New(c, server.Deps{
		API:       client,
		Store:     session.New(repo),
		Container: appstate.New(),
		Reporter:  reporter,
	})
	defer handler.Close()

	srv := &http.Server{Addr: c.GetPort(), Handler: handler}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == config.EnvDev {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openStorage selects the session backend named by STORAGE.
func openStorage(c config.EnvConfig) (storage.Repo, func(), error) {
	switch c.GetStorageBackend() {
	case config.StorageRedis:
		repo, err := storage.NewRedisRepoFromURL(c.GetRedisURL())
		if err != nil {
			return nil, nil, fmt.Errorf("[openStorage] redis: %w", err)
		}
		log.Info().Msg("session storage: redis")
		return repo, func() { _ = repo.Close() }, nil
	case config.StorageFile:
		repo, err := storage.NewFileRepo(c.GetDataFolder())
		if err != nil {
			return nil, nil, fmt.Errorf("[openStorage] file: %w", err)
		}
		log.Info().Str("folder", c.GetDataFolder()).Msg("session storage: file")
		return repo, func() {}, nil
	}
	return nil, nil, fmt.Errorf("[openStorage] unknown storage backend %q", c.GetStorageBackend())
}

// startDemoBackend serves the in-memory backend on a loopback port with one seeded account.
func startDemoBackend() (*http.Server, error) {
	backend := apifake.New()
	if _, err := backend.Seed(users.Fields{
		Name:     "Demo User",
		Username: "demo",
		Email:    demoEmail,
	}, demoPassword); err != nil {
		return nil, fmt.Errorf("[startDemoBackend] seed: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("[startDemoBackend] listen: %w", err)
	}
	srv := &http.Server{Addr: listener.Addr().String(), Handler: backend}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("demo backend stopped")
		}
	}()
	log.Info().Str("addr", srv.Addr).Str("email", demoEmail).Str("password", demoPassword).Msg("demo backend running")
	return srv, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Client listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
