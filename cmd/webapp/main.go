package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/internal/config"
)

//go:embed static
var staticFiles embed.FS

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running web app")
	}
	log.Info().Msg("Web app stopped")
}

func run() error {
	c := config.New()
	setupLogging(c.GetEnv())
	displayAppname("Web App")

	backendURL, err := url.Parse(c.GetBackendBaseURL())
	if err != nil {
		return fmt.Errorf("parse backend base url: %w", err)
	}

	staticRoot, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("static files: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticRoot)))
	mux.Handle("/api/", apiProxy(backendURL))

	httpServer := &http.Server{Addr: c.GetWebAppPort(), Handler: mux}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

// apiProxy forwards /api/* to the backend with the /api prefix stripped, so
// the browser talks to a single origin and the refresh token cookie is
// first-party.
func apiProxy(backendURL *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(backendURL)
			r.Out.URL.Path = strippedAPIPath(r.In.URL.Path)
			r.SetXForwarded()
		},
	}
}

func strippedAPIPath(path string) string {
	const prefix = "/api"
	if len(path) > len(prefix) {
		return path[len(prefix):]
	}
	return "/"
}

func setupLogging(env string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if env == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("Web app listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
