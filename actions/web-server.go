package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/starpipe/config"
	"github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/helper"
	"github.com/relloyd/starpipe/logger"
)

type WebServerConfig struct {
	ConfigFile       string `errorTxt:"config file" mandatory:"yes"`
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	Addr             net.IP `errorTxt:"address" mandatory:"no"`
	Port             int    `errorTxt:"port" mandatory:"yes"`
	StackDumpOnPanic bool
}

// RunWebServer serves the run API until it is stopped via /stop or SIGINT/SIGTERM.
// The configuration is loaded once at startup and shared by every run.
func RunWebServer(web *WebServerConfig) error {
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	if err := helper.ValidateStructIsPopulated(web); err != nil {
		return err
	}
	log := newLogger(web.LogLevel, web.StackDumpOnPanic)
	conf, err := loadConfig(web.ConfigFile)
	if err != nil {
		return err
	}
	srv, chanStopServer, runs := runServer(log, web, conf)
	return waitForServer(log, srv, chanStopServer, runs)
}

// newRouter registers the API routes.
func newRouter(log logger.Logger, conf config.Config, runs *runRegistry, chanStopServer chan string) *mux.Router {
	prepare := func(req RunRequest) (*pipelineRun, error) {
		return preparePipeline(log, conf, req, os.Stdout)
	}
	r := mux.NewRouter()
	r.HandleFunc("/stop", GetHandlerStopServer(log, chanStopServer))
	r.Path("/health").HandlerFunc(GetHandlerHealth(log))
	r.Path("/runs").Methods(http.MethodGet).HandlerFunc(GetHandlerRunList(log, runs))
	r.Path("/runs").Methods(http.MethodPost).HandlerFunc(GetHandlerRunLaunch(log, runs, prepare))
	r.Path("/runs/{runId}/status").Methods(http.MethodGet).HandlerFunc(GetHandlerRunStatus(log, runs))
	r.Path("/runs/{runId}/stop").Methods(http.MethodPost).HandlerFunc(GetHandlerRunStop(log, runs))
	return r
}

// runServer starts a web server and returns:
// 1) the server; and
// 2) a channel that can be used to stop the web server
// 3) the registry of runs started by the server
func runServer(log logger.Logger, web *WebServerConfig, conf config.Config) (*http.Server, chan string, *runRegistry) {
	chanStopServer := make(chan string, 1)
	runs := newRunRegistry()
	addr := ""
	if web.Addr != nil {
		addr = web.Addr.String()
	}
	srv := &http.Server{
		Addr:         net.JoinHostPort(addr, fmt.Sprintf("%v", web.Port)),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      newRouter(log, conf, runs, chanStopServer),
	}
	// Run HTTP server non-blocking.
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				log.Info(err)
			} else {
				log.Panic(err)
			}
		}
	}()
	log.Info(fmt.Sprintf("Listening on http://%v", srv.Addr))
	return srv, chanStopServer, runs
}

func waitForServer(log logger.Logger, srv *http.Server, chanStopServer chan string, runs *runRegistry) error {
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(chanOS)
	select {
	case <-chanStopServer:
	case <-chanOS:
		fmt.Println() // print new line char for clean looking CLI.
	}
	log.Info("Shutting down web server...")
	wait := time.Second * constants.WebServerShutdownWaitSeconds
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	// Cancel the active run first so its statement is rolled back before we exit.
	if err := runs.stopAll(ctx); err != nil {
		log.Warn("Timeout waiting for runs to stop: ", err)
	}
	return srv.Shutdown(ctx) // doesn't block if no connections, but will otherwise wait until the timeout deadline.
}
