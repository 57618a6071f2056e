// Package roleplaynexus provides a high-level façade over the core Engine
// and its services (providers, sessions, memory & logging) for building
// streaming roleplay chat applications. Most applications interact with
// this package by:
//  1. Creating a Nexus via New() (optionally from a config.Config)
//  2. Loading or creating sessions through Session()/Group()
//  3. Chatting asynchronously (Send) or synchronously (SendSync)
//
// The façade delegates orchestration to engine.Engine while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply the SQLite store and
// a structured logger.
package roleplaynexus

import (
	"context"
	"errors"
	"fmt"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/IronBullXD/RoleplayNexus-sub001/config"
	"github.com/IronBullXD/RoleplayNexus-sub001/core"
	"github.com/IronBullXD/RoleplayNexus-sub001/engine"
	"github.com/IronBullXD/RoleplayNexus-sub001/logging"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider/anthropic"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider/openai"
	"github.com/IronBullXD/RoleplayNexus-sub001/session"
	"github.com/IronBullXD/RoleplayNexus-sub001/session/sqlite"
)

// Options configures the Nexus instance.
type Options struct {
	// Config supplies provider credentials, generation defaults and the
	// storage backend, typically loaded from a YAML file via config.Load.
	Config config.Config

	// Providers are registered in addition to the ones built from Config.
	// Useful for custom adapters and the mock provider in tests.
	Providers []provider.Provider

	// SessionStore overrides the store selected by Config.Storage.
	SessionStore core.SessionStore

	// GroupStore overrides the group store selected by Config.Storage.
	GroupStore core.GroupSessionStore

	// Logger defaults to the NoOp logger if nil.
	Logger logging.Logger
}

// Nexus is the high-level façade aggregating the underlying engine and
// services.
type Nexus struct {
	opts     Options
	registry *provider.Registry
	engine   *engine.Engine
	store    core.SessionStore
	groups   core.GroupSessionStore
}

// New creates a Nexus with optional overrides. Providers named in the
// configuration are instantiated and registered; any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*Nexus, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	cfg := opts.Config

	registry := provider.NewRegistry()
	for id, pc := range cfg.Providers {
		prov, err := buildProvider(cfg, id, pc)
		if err != nil {
			return nil, err
		}
		registry.Register(prov)
	}
	for _, p := range opts.Providers {
		registry.Register(p)
	}

	store := opts.SessionStore
	groups := opts.GroupStore
	if store == nil || groups == nil {
		backing, backingGroups, err := buildStore(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if store == nil {
			store = backing
		}
		if groups == nil {
			groups = backingGroups
		}
	}

	eng := engine.New(registry, func(o *engine.Options) {
		o.Config = engineConfig(cfg.Generation)
		o.SessionStore = store
		o.GroupStore = groups
		o.Logger = opts.Logger
	})

	return &Nexus{
		opts:     opts,
		registry: registry,
		engine:   eng,
		store:    store,
		groups:   groups,
	}, nil
}

func buildProvider(cfg config.Config, id string, pc config.ProviderConfig) (provider.Provider, error) {
	switch id {
	case "openai":
		return openai.New(func(o *openai.Options) {
			o.APIKey = cfg.Key(id)
			if pc.Model != "" {
				o.Model = pc.Model
			}
		}), nil
	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			o.APIKey = cfg.Key(id)
			if pc.Model != "" {
				o.Model = sdkanthropic.Model(pc.Model)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q in configuration", id)
	}
}

func buildStore(sc config.StorageConfig) (core.SessionStore, core.GroupSessionStore, error) {
	switch sc.Driver {
	case "", "memory":
		s := session.NewInMemoryStore()
		return s, s, nil
	case "sqlite":
		s, err := sqlite.New(sc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open session store: %w", err)
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}

func engineConfig(gc config.GenerationConfig) engine.Config {
	c := engine.DefaultConfig
	if gc.Temperature > 0 {
		c.Temperature = gc.Temperature
	}
	if gc.ContextSize > 0 {
		c.ContextSize = gc.ContextSize
	}
	if gc.MaxTokens > 0 {
		c.MaxTokens = gc.MaxTokens
	}
	if gc.Reasoning {
		c.Reasoning = true
	}
	if gc.Memory != nil {
		c.Memory = *gc.Memory
	}
	if gc.Prefill != "" {
		c.Prefill = gc.Prefill
	}
	if gc.CommitInterval > 0 {
		c.CommitInterval = gc.CommitInterval.Std()
	}
	return c
}

// Engine exposes the underlying engine for advanced use (hooks, journal,
// cancellation, forking).
func (n *Nexus) Engine() *engine.Engine { return n.engine }

// Session loads the solo session for the given key, creating a fresh one if
// none is stored yet.
func (n *Nexus) Session(ctx context.Context, id, personaID string) (*core.Session, error) {
	sess, err := n.store.Get(ctx, core.SessionKey{ID: id, PersonaID: personaID})
	if errors.Is(err, core.ErrSessionNotFound) {
		sess = core.NewSession(id)
		sess.PersonaID = personaID
		return sess, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Group loads the group session with the given ID, creating a fresh one if
// none is stored yet.
func (n *Nexus) Group(ctx context.Context, id string) (*core.GroupSession, error) {
	g, err := n.groups.GetGroup(ctx, id)
	if errors.Is(err, core.ErrSessionNotFound) {
		return core.NewGroupSession(id), nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// params fills the provider selector from the configuration when the caller
// leaves it empty.
func (n *Nexus) params(p engine.Params) engine.Params {
	if p.Provider == "" {
		p.Provider = n.opts.Config.DefaultProvider
	}
	return p
}

// Send starts an asynchronous generation, returning the generation ID and
// the event & error channels.
func (n *Nexus) Send(ctx context.Context, sess *core.Session, text string, p engine.Params) (string, <-chan engine.Event, <-chan error, error) {
	return n.engine.Send(ctx, sess, text, n.params(p))
}

// SendSync sends and waits for the terminal message.
func (n *Nexus) SendSync(ctx context.Context, sess *core.Session, text string, p engine.Params) (core.Message, error) {
	return n.engine.SendSync(ctx, sess, text, n.params(p))
}

// GroupSend starts an asynchronous group generation.
func (n *Nexus) GroupSend(ctx context.Context, g *core.GroupSession, text string, p engine.Params) (string, <-chan engine.Event, <-chan error, error) {
	return n.engine.GroupSend(ctx, g, text, n.params(p))
}

// GroupSendSync sends to a group session and waits for the terminal message.
func (n *Nexus) GroupSendSync(ctx context.Context, g *core.GroupSession, text string, p engine.Params) (core.Message, error) {
	return n.engine.GroupSendSync(ctx, g, text, n.params(p))
}

// Cancel stops the generation with the given ID at the next fragment
// boundary, keeping the content streamed so far.
func (n *Nexus) Cancel(generationID string) { n.engine.Cancel(generationID) }
