package config

import "time"

// SMSConfig selects and configures the SMS gateway.  Provider "log" writes
// messages to the application log instead of sending them.
type SMSConfig struct {
	Provider      string
	APIURL        string
	APIKey        string
	From          string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	MaxRetries    int
}

// LoadSMSConfig reads SMS_* variables with defaults suitable for local runs.
func LoadSMSConfig() SMSConfig {
	return SMSConfig{
		Provider:      envStr("SMS_PROVIDER", "log"),
		APIURL:        envStr("SMS_API_URL", ""),
		APIKey:        envStr("SMS_API_KEY", ""),
		From:          envStr("SMS_FROM", "Salon"),
		Timeout:       envDur("SMS_TIMEOUT", 10*time.Second),
		RatePerSecond: float64(envInt("SMS_RATE_PER_SECOND", 10)),
		Burst:         envInt("SMS_BURST", 20),
		MaxRetries:    envInt("SMS_MAX_RETRIES", 2),
	}
}
