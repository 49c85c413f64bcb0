package command

import (
	"fmt"

	"github.com/pixil98/go-presence/internal/listener"
	"github.com/pixil98/go-presence/internal/messaging"
	"github.com/pixil98/go-presence/internal/presence"
	"github.com/pixil98/go-presence/internal/registry"
	"github.com/pixil98/go-presence/internal/router"
	"github.com/pixil98/go-presence/internal/session"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	workers := service.WorkerList{}
	reg := registry.New()

	// Pick the presence backend. Memory serves a single process; nats
	// shares the store and fan-out across processes.
	var store presence.Store
	var pub router.Publisher
	var sub session.Subscriber
	switch cfg.Presence.Backend {
	case BackendTypeMemory:
		store = presence.NewMemStore()
		pub = router.NewDirectPublisher(reg)
	case BackendTypeNats:
		ns, err := cfg.Nats.BuildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating nats server: %w", err)
		}
		workers["nats"] = ns
		store = presence.NewKVStore(ns, cfg.Presence.BucketName())
		pub = messaging.NewNatsPublisher(ns)
		sub = ns
	default:
		return nil, fmt.Errorf("unknown presence backend: %v", cfg.Presence.Backend)
	}

	var opts []router.RouterOpt
	if cfg.Presence.ProximityThreshold > 0 {
		opts = append(opts, router.WithProximityThreshold(cfg.Presence.ProximityThreshold))
	}

	roomStore, err := cfg.Rooms.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating room store: %w", err)
	}
	if roomStore != nil {
		opts = append(opts, router.WithAdmitter(roomStore))
	}

	rt := router.New(store, reg, pub, opts...)
	cm := listener.NewConnectionManager(rt, sub, cfg.Presence.SendQueueSize)

	// Create Listeners
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lst, err := l.BuildListener(cm, store)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lst
	}
	workers["listeners"] = &listeners

	return workers, nil
}
