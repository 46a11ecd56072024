package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/trezcool/portal/apps/api/echo"
	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/alert"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/conversation"
	"github.com/trezcool/portal/core/dashboard"
	"github.com/trezcool/portal/core/meeting"
	"github.com/trezcool/portal/core/resource"
	"github.com/trezcool/portal/core/submission"
	"github.com/trezcool/portal/core/ticket"
	logsvc "github.com/trezcool/portal/services/logger"
	"github.com/trezcool/portal/storage"
	"github.com/trezcool/portal/storage/fixtures"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(os.Stdout, "api", conf)
	storeLogger := logger.Named("store")

	ctx := context.Background()
	store, closeStore, err := storage.Open(ctx, conf, storeLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			storeLogger.Error("Failed to close", err)
		}
	}()

	if conf.Store.Seed {
		counts, err := fixtures.Seed(ctx, store)
		if err != nil {
			logger.Fatal(fmt.Sprintf("seeding store: %v", err), err)
		}
		logger.Info("Store seeded", counts)
	}

	deps := newDeps(store, conf, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("store").Set(conf.Store.Backend)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:  conf.Server.Address,
			Debug:    conf.Debug,
			TestMode: conf.TestMode,
			Logger:   logger,
			Shutdown: func() {
				select {
				case shutdown <- syscall.SIGTERM:
				default: // already shutting down
				}
			},
		},
		deps,
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func newDeps(store core.RecordStore, conf *core.Config, logger *logsvc.RollbarLogger) *echoapi.Deps {
	alerts := collection.NewStoreAdapter(store, alert.Schema)
	tickets := collection.NewStoreAdapter(store, ticket.Schema)
	meetings := collection.NewStoreAdapter(store, meeting.Schema)
	submissions := collection.NewStoreAdapter(store, submission.Schema)
	resources := collection.NewStoreAdapter(store, resource.Schema)
	conversations := collection.NewStoreAdapter(store, conversation.Schema)

	deps := &echoapi.Deps{
		Alerts: alert.NewService(alerts, alerts, logger.Named("alerts"),
			collection.Options[alert.Alert]{LoadTimeout: conf.LoadTimeout}),
		Tickets: ticket.NewService(tickets, tickets, logger.Named("tickets"),
			collection.Options[ticket.Ticket]{LoadTimeout: conf.LoadTimeout}),
		Meetings: meeting.NewService(meetings, meetings, logger.Named("meetings"),
			collection.Options[meeting.Meeting]{LoadTimeout: conf.LoadTimeout}),
		Submissions: submission.NewService(submissions, submissions, logger.Named("submissions"),
			collection.Options[submission.Submission]{LoadTimeout: conf.LoadTimeout}),
		Resources: resource.NewService(resources, resources, logger.Named("resources"),
			collection.Options[resource.Resource]{LoadTimeout: conf.LoadTimeout}),
		Conversations: conversation.NewService(conversations, conversations, logger.Named("conversations"),
			collection.Options[conversation.Conversation]{LoadTimeout: conf.LoadTimeout}),
	}
	deps.Dashboard = dashboard.NewBuilder(dashboard.Cards(dashboard.Services{
		Alerts:        deps.Alerts,
		Tickets:       deps.Tickets,
		Meetings:      deps.Meetings,
		Submissions:   deps.Submissions,
		Resources:     deps.Resources,
		Conversations: deps.Conversations,
	}), logger.Named("dashboard"))
	return deps
}
