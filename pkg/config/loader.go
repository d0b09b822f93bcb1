package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	cache         sync.Map // type name -> *entry
	dotenvOnce    sync.Once
	dotenvFiles   = []string{".env"}
	dotenvFilesMu sync.Mutex
)

// UseEnvFiles replaces the list of .env files applied before the first Load.
// It has no effect once a configuration has been loaded.
func UseEnvFiles(files ...string) {
	dotenvFilesMu.Lock()
	dotenvFiles = files
	dotenvFilesMu.Unlock()
}

// Load parses environment variables into v. Every configuration type is parsed
// once; subsequent calls copy the cached value into v.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		dotenvFilesMu.Lock()
		files := dotenvFiles
		dotenvFilesMu.Unlock()
		for _, f := range files {
			// Missing files are fine; the environment may be fully populated.
			_ = godotenv.Load(f)
		}
	})

	e, _ := cache.LoadOrStore(typeName[T](), &entry{})
	ent := e.(*entry)
	ent.once.Do(func() {
		var parsed T
		if err := env.Parse(&parsed); err != nil {
			ent.err = errors.Join(ErrParsingConfig, err)
			return
		}
		ent.value = parsed
	})

	if ent.err != nil {
		return ent.err
	}
	*v = ent.value.(T)
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Reset clears cached configurations.
func Reset() {
	cache.Range(func(k, _ any) bool {
		cache.Delete(k)
		return true
	})
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.String()
}
