// Package testcases runs the model-backed components against a real chat
// model. The tests skip unless FORMPILOT_RUN_LIVE_TESTS=1 and an API key is
// configured.
package testcases

import (
	"context"
	"os"
	"testing"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/tbxark/formpilot/config"
	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/structured"
)

const catalogPath = "../forms/form_samples.json"

func InitChatModel(t *testing.T) *openai.ChatModel {
	t.Helper()
	if os.Getenv("FORMPILOT_RUN_LIVE_TESTS") != "1" {
		t.Skip("set FORMPILOT_RUN_LIVE_TESTS=1 to run live LLM tests")
	}
	cfg, err := config.Load(config.LoadOptions{EnvFile: "../.env"})
	if err != nil {
		t.Skipf("failed to load config: %v", err)
	}
	if !cfg.LLM.Enabled() {
		t.Skip("llm.api_key is empty")
	}
	chatModel, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		t.Fatalf("failed to init chat model: %v", err)
	}
	return chatModel
}

func LoadCatalog(t *testing.T) *form.MemoryRegistry {
	t.Helper()
	reg, err := form.LoadCatalog(catalogPath)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return reg
}

func chainOptions() []structured.ChainOption {
	return []structured.ChainOption{structured.WithRetry(2, 0)}
}
