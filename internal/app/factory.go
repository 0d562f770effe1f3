package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vovakirdan/grammarchat-server/internal/completion"
	"github.com/vovakirdan/grammarchat-server/internal/completion/gemini"
	"github.com/vovakirdan/grammarchat-server/internal/completion/openai"
	"github.com/vovakirdan/grammarchat-server/internal/config"
	"github.com/vovakirdan/grammarchat-server/internal/store"
	"github.com/vovakirdan/grammarchat-server/internal/store/file"
	"github.com/vovakirdan/grammarchat-server/internal/store/memory"
	"github.com/vovakirdan/grammarchat-server/internal/store/redis"
	"github.com/vovakirdan/grammarchat-server/internal/store/sqlite"
)

// SQLiteFileName is the database file created under storage.path.
const SQLiteFileName = "grammarchat.db"

// OpenStore opens the KV backend named by cfg.Storage.Driver.
func OpenStore(ctx context.Context, cfg *config.Config, secrets config.Secrets) (store.KV, error) {
	sc := cfg.Storage
	switch sc.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverFile:
		return file.New(sc.Path)
	case config.DriverSQLite:
		if err := os.MkdirAll(sc.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		return sqlite.New(filepath.Join(sc.Path, SQLiteFileName))
	case config.DriverRedis:
		return redis.New(ctx, redis.Options{
			Addr:     sc.RedisAddr,
			Password: secrets.RedisPassword,
			DB:       sc.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}

// NewCompletionClient builds the client for cfg.Completion.Provider.
func NewCompletionClient(cfg *config.Config, secrets config.Secrets) (completion.Client, error) {
	cc := cfg.Completion
	switch cc.Provider {
	case config.ProviderGemini:
		return gemini.New(gemini.Options{
			APIKey:         secrets.CompletionKey(),
			BaseURL:        cc.BaseURL,
			Model:          cc.Model,
			PromptTemplate: cc.PromptTemplate,
			Timeout:        cc.Timeout,
		}), nil
	case config.ProviderOpenAI:
		return openai.New(openai.Options{
			APIKey:         secrets.CompletionKey(),
			BaseURL:        cc.BaseURL,
			Model:          cc.Model,
			PromptTemplate: cc.PromptTemplate,
		})
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cc.Provider)
	}
}
