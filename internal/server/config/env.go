package config

import "github.com/kelseyhightower/envconfig"

// parseEnv overlays values from SALON_*-prefixed environment variables onto
// the provided Config. Unset variables leave the existing values untouched.
func parseEnv(config *Config) {
	if err := envconfig.Process("salon", config); err != nil {
		panic(err)
	}
}
