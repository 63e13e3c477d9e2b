// Package config loads the realm console configuration.
//
// Values come from the environment, optionally seeded from a .env file:
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := cfg.Logging.NewLogger(os.Stdout)
//
// Persistence is selected with REALM_PERSISTENCE (file, memory or
// postgres). The IDM_PG_* variables are only read for postgres.
// Validation failures are reported together as ValidationErrors.
package config
