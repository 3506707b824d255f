package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/squadlink-dev/squadlink/go/internal/bus"
	"github.com/squadlink-dev/squadlink/go/internal/chat"
	"github.com/squadlink-dev/squadlink/go/internal/gateway"
	"github.com/squadlink-dev/squadlink/go/internal/repl"
	"github.com/squadlink-dev/squadlink/go/internal/team"
	"github.com/squadlink-dev/squadlink/go/internal/vehicle"
)

type Services struct {
	Bus     bus.Bus
	Manager *team.Manager
	Sweeper *team.Sweeper
	Teams   *repl.Server
	Chat    *chat.Relay
	Locks   *vehicle.Locks
	Gateway *gateway.Service
}

func setupServices(config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Bus → directory → consumers → gateway
	clock := clockwork.NewRealClock()

	var eventBus bus.Bus
	if config.NATS.URL != "" {
		natsConfig := bus.DefaultNATSConfig()
		natsConfig.URL = config.NATS.URL
		natsBus, err := bus.NewNATS(natsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect event bus: %w", err)
		}
		eventBus = natsBus
	} else {
		eventBus = bus.NewMemory()
	}

	sink := repl.NewPublisher(eventBus)

	teamConfig := team.Config{
		MaxTeamSize:   config.Team.MaxTeamSize,
		MaxFlagpoles:  config.Team.MaxFlagpoles,
		InvitationTTL: config.invitationTTL(),
	}
	manager := team.NewManager(teamConfig, clock, sink)
	sweeper := team.NewSweeper(manager, clock, config.sweepInterval())

	teamService := repl.NewServer(manager)
	chatRelay := chat.NewRelay(manager, sink, clock)
	locks := vehicle.NewLocks(manager, sink, clock)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.SyncInterval = config.syncInterval()
	gatewayService := gateway.NewService(gatewayConfig, teamService, chatRelay, locks, eventBus, clock)

	return &Services{
		Bus:     eventBus,
		Manager: manager,
		Sweeper: sweeper,
		Teams:   teamService,
		Chat:    chatRelay,
		Locks:   locks,
		Gateway: gatewayService,
	}, nil
}
