package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/feedvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-k string   download token HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-x int      download token validity, seconds
//	-p string   download token policy (multi-use | single-use)
//	-w int      refund sweep interval, seconds (0 disables)
//	-u string   uploads directory
//	-b string   public base URL used in download links
//	-m string   admin email
//	-g string   storage backend (local | s3)
//	-l string   log level
//
// Duration flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-k", "-t", "-r", "-x", "-p", "-w", "-u", "-b", "-m", "-g", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.DownloadTokenSecret, "k", config.DownloadTokenSecret, "download token secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	downloadTokenTTL := fs.Int("x", int(config.DownloadTokenTTL.Seconds()), "download_token_ttl (in seconds)")
	refundSweepInterval := fs.Int("w", int(config.RefundSweepInterval.Seconds()), "refund_sweep_interval (in seconds, 0 disables)")

	fs.StringVar(&config.DownloadTokenPolicy, "p", config.DownloadTokenPolicy, "download token policy")
	fs.StringVar(&config.UploadsDir, "u", config.UploadsDir, "uploads directory")
	fs.StringVar(&config.BaseURL, "b", config.BaseURL, "public base URL")
	fs.StringVar(&config.AdminEmail, "m", config.AdminEmail, "admin email")
	fs.StringVar(&config.StorageBackend, "g", config.StorageBackend, "storage backend")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.DownloadTokenTTL = time.Duration(*downloadTokenTTL) * time.Second
	config.RefundSweepInterval = time.Duration(*refundSweepInterval) * time.Second
}
