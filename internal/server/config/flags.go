package config

import (
	"flag"
	"os"
	"time"

	"github.com/convivial/salon/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   bind address (e.g., ":8090")
//	-o string   allowed WebSocket origin
//	-d string   PostgreSQL DSN
//	-q string   Redis pub/sub address
//	-k string   Redis cache address
//	-s string   JWT HMAC secret key
//	-w int      collision window, minutes
//	-r int      gift reveal delay, hours
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-dev        enable development auth (accept unverified identity claims)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-o", "-d", "-q", "-k", "-s", "-w", "-r", "-u", "-p", "-b", "-g", "-e", "-dev"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.AllowedOrigin, "o", config.AllowedOrigin, "allowed websocket origin")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisPubSubAddr, "q", config.RedisPubSubAddr, "redis pub/sub address")
	fs.StringVar(&config.RedisCacheAddr, "k", config.RedisCacheAddr, "redis cache address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.BoolVar(&config.DevAuth, "dev", config.DevAuth, "development auth mode")

	collisionWindow := fs.Int("w", int(config.CollisionWindow.Minutes()), "collision window (in minutes)")
	giftRevealDelay := fs.Int("r", int(config.GiftRevealDelay.Hours()), "gift reveal delay (in hours)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.CollisionWindow = time.Duration(*collisionWindow) * time.Minute
	config.GiftRevealDelay = time.Duration(*giftRevealDelay) * time.Hour
}
