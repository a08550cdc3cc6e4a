package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/convivial/salon/internal/flagx"
	"github.com/convivial/salon/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "1h" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddr       string         `json:"endpoint_addr"`
	AllowedOrigin      string         `json:"allowed_origin"`
	DatabaseDSN        string         `json:"database_dsn"`
	RedisPubSubAddr    string         `json:"redis_pubsub_addr"`
	RedisCacheAddr     string         `json:"redis_cache_addr"`
	SecretKey          string         `json:"secret_key"`
	DevAuth            bool           `json:"dev_auth"`
	AuthTimeout        timex.Duration `json:"auth_timeout"`
	StoreTimeout       timex.Duration `json:"store_timeout"`
	CollisionWindow    timex.Duration `json:"collision_window"`
	GiftRevealDelay    timex.Duration `json:"gift_reveal_delay"`
	GiftRevealInterval timex.Duration `json:"gift_reveal_interval"`
	DigestHourUTC      int            `json:"digest_hour_utc"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.AllowedOrigin = c.AllowedOrigin
	config.DatabaseDSN = c.DatabaseDSN
	config.RedisPubSubAddr = c.RedisPubSubAddr
	config.RedisCacheAddr = c.RedisCacheAddr
	config.SecretKey = c.SecretKey
	config.DevAuth = c.DevAuth
	config.AuthTimeout = time.Duration(c.AuthTimeout.Duration)
	config.StoreTimeout = time.Duration(c.StoreTimeout.Duration)
	config.CollisionWindow = time.Duration(c.CollisionWindow.Duration)
	config.GiftRevealDelay = time.Duration(c.GiftRevealDelay.Duration)
	config.GiftRevealInterval = time.Duration(c.GiftRevealInterval.Duration)
	config.DigestHourUTC = c.DigestHourUTC
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
