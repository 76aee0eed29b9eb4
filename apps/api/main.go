package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof"

	dig_container "github.com/trezcool/eadtoolz/apps/api/di/dig"
	echoapi "github.com/trezcool/eadtoolz/apps/api/echo"
	"github.com/trezcool/eadtoolz/core"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		closer io.Closer,
		server echoapi.Server,
		shutdown dig_container.Shutdown,
	) {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		defer logger.Info("Application stopped")

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := closer.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		expvar.NewString("databaseEngine").Set(conf.Database.Engine)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start API Service

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
			serverErrors <- server.Start()
		}()
		server.SetReady(true)

		// =========================================================================
		// Shutdown

		select {
		case err := <-serverErrors:
			logger.Error(fmt.Sprintf("server error: %v", err), err)

		case sig := <-shutdown:
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Stop(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
