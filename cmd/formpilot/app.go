package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/agent"
	"github.com/tbxark/formpilot/command"
	"github.com/tbxark/formpilot/config"
	"github.com/tbxark/formpilot/dialogue"
	"github.com/tbxark/formpilot/engine"
	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/grader"
	"github.com/tbxark/formpilot/intent"
	"github.com/tbxark/formpilot/session"
	"github.com/tbxark/formpilot/structured"
)

const retryBase = 300 * time.Millisecond

type app struct {
	engine  *engine.Engine
	flow    *agent.FormFlow
	history *agent.History
	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("Close failed", "error", err)
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	registry, err := form.LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	a := &app{}

	var (
		store        session.Store
		bindings     agent.Cache[string]
		historyCache agent.Cache[[]*schema.Message]
	)
	switch cfg.Store.Driver {
	case "redis":
		rs, err := session.NewRedisStoreFromURL(ctx, cfg.Store.RedisURL, session.WithTTL(cfg.Store.TTL))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		store = rs
		bindings = agent.NewRedisCache[string](rs.Client(), cfg.Store.TTL)
		historyCache = agent.NewRedisCache[[]*schema.Message](rs.Client(), cfg.Store.TTL)
	default:
		ms := session.NewMemoryStore(session.WithTTL(cfg.Store.TTL))
		if cfg.Store.SweepInterval > 0 {
			go ms.RunSweeper(ctx, cfg.Store.SweepInterval)
		}
		store = ms
		bindings = agent.NewMemoryCache[string]()
		historyCache = agent.NewMemoryCache[[]*schema.Message]()
	}

	var chatModel model.ToolCallingChatModel
	if cfg.LLM.Enabled() {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		chatModel = cm
	} else {
		slog.Info("No language model configured, using local wording and heuristics")
	}
	chainOpts := []structured.ChainOption{structured.WithRetry(cfg.LLM.Attempts, retryBase)}

	opts := []engine.Option{}
	g, err := buildGrader(cfg.Grader, chatModel, chainOpts)
	if err != nil {
		return nil, err
	}
	if g != nil {
		opts = append(opts, engine.WithGrader(g, cfg.Grader.Timeout))
	}

	flowOpts := []agent.FlowOption{agent.WithBindings(bindings)}
	if chatModel != nil {
		if cfg.Questions.UseLLM {
			remote, err := dialogue.NewToolBasedGenerator(chatModel, dialogue.WithChainOptions(chainOpts...))
			if err != nil {
				return nil, err
			}
			cached, err := dialogue.NewCachedGenerator(remote, cfg.Questions.CacheSize, dialogue.WithFillTimeout(cfg.LLM.Timeout))
			if err != nil {
				return nil, err
			}
			opts = append(opts, engine.WithQuestionGenerator(cached))
		}
		previewer, err := dialogue.NewToolBasedPreviewer(chatModel, dialogue.WithChainOptions(chainOpts...))
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithPreviewer(dialogue.NewFailbackPreviewer(previewer, dialogue.LocalPreviewer{})))

		remoteParser, err := command.NewToolBasedParser(chatModel, chainOpts...)
		if err != nil {
			return nil, err
		}
		flowOpts = append(flowOpts, agent.WithParser(command.NewFailbackParser(command.NewLocalParser(), remoteParser)))

		selector, err := intent.NewToolBasedSelector(chatModel, chainOpts...)
		if err != nil {
			return nil, err
		}
		flowOpts = append(flowOpts, agent.WithSelector(intent.NewFailbackSelector(intent.RegistrySelector{Registry: registry}, selector)))
	}

	a.engine = engine.New(registry, store, opts...)
	a.flow = agent.NewFormFlow(a.engine, flowOpts...)
	a.history = agent.NewHistory(historyCache, agent.DefaultHistoryLimit)
	return a, nil
}

func buildGrader(cfg config.GraderConfig, chatModel model.ToolCallingChatModel, chainOpts []structured.ChainOption) (grader.Grader, error) {
	policy := grader.DefaultPolicy()
	policy.MinAge = cfg.MinAge
	policy.MaxAge = cfg.MaxAge
	policy.MinAddressRunes = cfg.MinAddressRunes
	local := &grader.LocalGrader{Policy: policy, Now: time.Now}

	switch cfg.Mode {
	case "off":
		return nil, nil
	case "llm":
		if chatModel == nil {
			return local, nil
		}
		remote, err := grader.NewToolBasedGrader(chatModel, chainOpts...)
		if err != nil {
			return nil, err
		}
		return grader.NewFailbackGrader(remote, local), nil
	default:
		return local, nil
	}
}
