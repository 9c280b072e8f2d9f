/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Command wifimgrd is the Wi-Fi connection manager daemon: it selects an
// access point from a persisted list of known networks, joins it,
// recovers from every identified failure mode, and fans out status
// changes to subscribers.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"wifimgrd/internal/connmgr"
	"wifimgrd/internal/logging"
	"wifimgrd/internal/metrics"
	"wifimgrd/internal/ports"
)

const pname = "wifimgrd"

var (
	logLevel      string
	apDictDir     string
	diagAddr      string
	subscriberCap int
	bootPollMS    uint32
	nominalPollMS uint32
	minECRev      string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   pname,
		Short: "Autonomously establish and maintain a single Wi-Fi association",
		RunE:  run,
	}

	flags := cmd.Flags()
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&apDictDir, "ap-dict-dir", "/etc/wifimgrd", "root directory for the known-AP credential store")
	flags.StringVar(&diagAddr, "diag-addr", ":6543", "address for the diagnostic/metrics HTTP listener")
	flags.IntVar(&subscriberCap, "subscriber-capacity", 32, "maximum number of concurrent status subscribers")
	flags.Uint32Var(&bootPollMS, "boot-poll", connmgr.BootPollIntervalMS, "poll interval (ms) before the credential store is mounted")
	flags.Uint32Var(&nominalPollMS, "nominal-poll", connmgr.NominalPollIntervalMS, "poll interval (ms) once the credential store is mounted")
	flags.StringVar(&minECRev, "min-ec-rev", connmgr.MinECRev.String(), "minimum EC firmware revision the daemon will drive")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	log, err := logging.New(pname)
	if err != nil {
		return fmt.Errorf("starting logger: %w", err)
	}
	defer log.Sync()

	if err := logging.SetLevel(logLevel); err != nil {
		log.Warnw("ignoring invalid --log-level", "value", logLevel, "error", err)
	}

	log.Infow("starting", "ap-dict-dir", apDictDir, "diag-addr", diagAddr)

	minRev, err := version.NewVersion(minECRev)
	if err != nil {
		return fmt.Errorf("parsing --min-ec-rev %q: %w", minECRev, err)
	}

	reg := prometheus.NewRegistry()
	mcol := metrics.New(reg)

	creds := ports.NewFileCredentialStore(afero.NewOsFs(), apDictDir, nil)
	netStack := ports.NewLoggingNetStack(log)
	notifier := ports.NewLoggingNotifier(log)

	// No board-specific EC has been wired in: NoOpEC reports a
	// firmware revision below MinECRev, so the manager starts and
	// immediately goes inert per spec.md §4.7, rather than crashing or
	// attempting to drive hardware that doesn't exist. Replace with a
	// real ports.EC implementation for a given board.
	mgr, err := connmgr.New(connmgr.Config{
		EC:              ports.NoOpEC{},
		CredentialStore: creds,
		NetStack:        netStack,
		Notifier:        notifier,
		Log:             log,
		Metrics:         mcol,
		SubscriberCap:   subscriberCap,
		MinECRev:        minRev,
		BootPollMS:      bootPollMS,
		NominalPollMS:   nominalPollMS,
	})
	if err != nil {
		return fmt.Errorf("constructing connection manager: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	diagServer := &http.Server{Addr: diagAddr, Handler: mux}
	go func() {
		if err := diagServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warnw("diagnostic listener exited", "error", err)
		}
	}()

	mgr.Start()
	mgr.Run()

	sig := make(chan os.Signal, 3)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Infow("received shutdown signal")
	mgr.Quit()
	diagServer.Close()

	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
