package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/focusmind/internal/profile"
	"github.com/hrygo/focusmind/store"
	"github.com/hrygo/focusmind/store/db/memory"
	"github.com/hrygo/focusmind/store/db/postgres"
	"github.com/hrygo/focusmind/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	case "memory":
		driver = memory.NewDB()
	default:
		return nil, errors.Errorf("unknown db driver %q: only sqlite, postgres and memory are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
