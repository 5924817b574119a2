package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Addr        string        `env:"LETTUCE_ADDR,default=127.0.0.1:6379"`
	DialTimeout time.Duration `env:"LETTUCE_DIAL_TIMEOUT,default=5s"`
	DebugHTTP   bool          `env:"LETTUCE_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			panic(err)
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
