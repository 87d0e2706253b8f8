package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/rangd/rangd/pkg/filestore"
	"github.com/rangd/rangd/pkg/handler"
)

// Serve sets up the handler for the resource directory and runs the HTTP
// server until it receives SIGINT or SIGTERM, after which open transfers
// are interrupted and connections drained within the shutdown timeout.
func Serve() {
	if stat, err := os.Stat(Flags.ResourceDir); err != nil || !stat.IsDir() {
		stderr.Fatalf("Resource directory %s does not exist or is not a directory", Flags.ResourceDir)
	}

	store := filestore.New(Flags.ResourceDir)

	rejectionStatus := http.StatusServiceUnavailable
	if Flags.RejectWithTooManyRequests {
		rejectionStatus = http.StatusTooManyRequests
	}

	rangeHandler, err := handler.NewHandler(handler.Config{
		Store:                  store,
		MaxConcurrentTransfers: Flags.MaxConcurrentTransfers,
		RejectionStatus:        rejectionStatus,
		RetryAfter:             Flags.RetryAfter,
		CacheControl:           Flags.CacheControl,
		IdleTimeout:            Flags.IdleTimeout,
		SweepInterval:          Flags.SweepInterval,
		Logger:                 structuredLogger,
	})
	if err != nil {
		stderr.Fatalf("Unable to create handler: %s", err)
	}

	basepath := Flags.Basepath
	address := ""
	if Flags.HttpSock != "" {
		address = Flags.HttpSock
		stdout.Printf("Using %s as socket to listen.\n", address)
	} else {
		address = Flags.HttpHost + ":" + Flags.HttpPort
		stdout.Printf("Using %s as address to listen.\n", address)
	}

	stdout.Printf("Using %s as the base path.\n", basepath)
	stdout.Printf("Using %s as the resource directory.\n", Flags.ResourceDir)
	stdout.Printf("Using %d as the transfer concurrency ceiling.\n", Flags.MaxConcurrentTransfers)

	router := chi.NewRouter()

	// Do not display the greeting if the handler will be mounted at the
	// root path, as it would shadow the resource routes.
	if basepath != "/" && Flags.ShowGreeting {
		PrepareGreeting()
		router.Get("/", DisplayGreeting)
	}

	if Flags.ExposeMetrics {
		SetupMetrics(router, rangeHandler)
	}
	if Flags.ExposePprof {
		SetupPprof(router)
	}

	mountPoint := strings.TrimSuffix(basepath, "/")
	if mountPoint == "" {
		router.Mount("/", rangeHandler)
	} else {
		router.Mount(mountPoint, http.StripPrefix(mountPoint, rangeHandler))
	}

	var listener net.Listener
	if Flags.HttpSock != "" {
		listener, err = NewUnixListener(address, Flags.NetworkTimeout, Flags.NetworkTimeout)
	} else {
		listener, err = NewListener(address, Flags.NetworkTimeout, Flags.NetworkTimeout)
	}
	if err != nil {
		stderr.Fatalf("Unable to create listener: %s", err)
	}

	if Flags.HttpSock == "" {
		stdout.Printf("You can now serve resources at http://%s%s", listener.Addr().String(), basepath)
	}

	server := &http.Server{
		Handler: router,
	}

	shutdownComplete := setupSignalHandler(server, rangeHandler)

	if err = server.Serve(listener); errors.Is(err, http.ErrServerClosed) {
		// ErrServerClosed means that http.Server.Shutdown was called due to
		// an interruption signal. We wait until the shutdown procedure has
		// finished before the process exits.
		<-shutdownComplete
	} else if err != nil {
		stderr.Fatalf("Unable to serve: %s", err)
	}
}

func setupSignalHandler(server *http.Server, rangeHandler *handler.Handler) <-chan struct{} {
	shutdownComplete := make(chan struct{})

	// We read up to two signals, so use a capacity of 2 here to not miss one.
	signalChan := make(chan os.Signal, 2)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	// Signal the open transfers to stop once the server begins shutting
	// down, so their connections free up during the drain period.
	server.RegisterOnShutdown(rangeHandler.InterruptRequestHandling)

	go func() {
		<-signalChan
		stdout.Println("Received interrupt signal. Shutting down server...")

		// Reset the signal handling, so a second interrupt exits directly.
		signal.Stop(signalChan)

		ctx, cancel := context.WithTimeout(context.Background(), Flags.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				stderr.Printf("Failed to shutdown gracefully: %s\n", err)
			} else {
				stderr.Printf("Failed to shutdown: %s\n", err)
			}
		}

		close(shutdownComplete)
	}()

	return shutdownComplete
}
