package config

import "time"

// DashboardConfig holds runtime configuration for the dashboard web UI.
type DashboardConfig struct {
	Environment    string
	Addr           string
	APIBaseURL     string
	SessionSecret  string
	CookieName     string
	CookieSecure   bool
	RequestTimeout time.Duration
	LoginPerMinute int
	LoginBurst     int
}

// LoadDashboardConfig constructs a DashboardConfig from environment variables.
func LoadDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Environment:    GetString("APP_ENV", "development"),
		Addr:           GetString("DASHBOARD_ADDR", ":5001"),
		APIBaseURL:     GetString("API_BASE_URL", "http://localhost:5000"),
		SessionSecret:  GetString("SESSION_SECRET", ""),
		CookieName:     GetString("SESSION_COOKIE", "techvault_session"),
		CookieSecure:   GetBool("SESSION_COOKIE_SECURE", false),
		RequestTimeout: time.Duration(GetInt("DASHBOARD_REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		LoginPerMinute: GetInt("DASHBOARD_LOGIN_PER_MINUTE", 20),
		LoginBurst:     GetInt("DASHBOARD_LOGIN_BURST", 5),
	}
}
