package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/feedvault/internal/flagx"
	"github.com/dmitrijs2005/feedvault/internal/timex"
)

// JsonConfig mirrors Config for JSON decoding. Durations use timex.Duration so
// both "5m" and integer nanoseconds are accepted. Pointer fields distinguish
// "absent" from a zero value, so a partial file only overrides what it names.
type JsonConfig struct {
	HTTPAddr                     *string         `json:"http_addr"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	DownloadTokenSecret          *string         `json:"download_token_secret"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	DownloadTokenTTL             *timex.Duration `json:"download_token_ttl"`
	DownloadTokenPolicy          *string         `json:"download_token_policy"`
	RefundSweepInterval          *timex.Duration `json:"refund_sweep_interval"`
	UploadsDir                   *string         `json:"uploads_dir"`
	BaseURL                      *string         `json:"base_url"`
	FrontendURL                  *string         `json:"frontend_url"`
	AdminEmail                   *string         `json:"admin_email"`
	CookieDomain                 *string         `json:"cookie_domain"`
	SecureCookies                *bool           `json:"secure_cookies"`
	StorageBackend               *string         `json:"storage_backend"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	BTCPayHost                   *string         `json:"btcpay_host"`
	BTCPayAPIKey                 *string         `json:"btcpay_api_key"`
	BTCPayStoreID                *string         `json:"btcpay_store_id"`
	PayPalBaseURL                *string         `json:"paypal_base_url"`
	PayPalClientID               *string         `json:"paypal_client_id"`
	PayPalSecret                 *string         `json:"paypal_secret"`
	LogFormat                    *string         `json:"log_format"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into config.
//
// The file path comes from -c / -config or $FEEDVAULT_CONFIG; when none is
// set nothing is loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	set(&config.HTTPAddr, c.HTTPAddr)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.DownloadTokenSecret, c.DownloadTokenSecret)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.DownloadTokenTTL, c.DownloadTokenTTL)
	set(&config.DownloadTokenPolicy, c.DownloadTokenPolicy)
	setDuration(&config.RefundSweepInterval, c.RefundSweepInterval)
	set(&config.UploadsDir, c.UploadsDir)
	set(&config.BaseURL, c.BaseURL)
	set(&config.FrontendURL, c.FrontendURL)
	set(&config.AdminEmail, c.AdminEmail)
	set(&config.CookieDomain, c.CookieDomain)
	set(&config.SecureCookies, c.SecureCookies)
	set(&config.StorageBackend, c.StorageBackend)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.BTCPayHost, c.BTCPayHost)
	set(&config.BTCPayAPIKey, c.BTCPayAPIKey)
	set(&config.BTCPayStoreID, c.BTCPayStoreID)
	set(&config.PayPalBaseURL, c.PayPalBaseURL)
	set(&config.PayPalClientID, c.PayPalClientID)
	set(&config.PayPalSecret, c.PayPalSecret)
	set(&config.LogFormat, c.LogFormat)
	set(&config.LogLevel, c.LogLevel)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
