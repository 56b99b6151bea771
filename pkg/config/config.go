package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilPointer    = errors.New("config target cannot be nil")
	ErrFailedToParse = errors.New("failed to parse environment variables")
)

var dotenvOnce sync.Once

// Load populates the given configuration struct from environment variables.
// On first call it also loads a .env file if one exists; a missing file is
// not an error.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrFailedToParse, err)
	}
	return nil
}

// MustLoad is like Load but panics on failure. Configuration problems should
// prevent startup rather than surface as runtime errors.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}
