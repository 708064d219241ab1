package config

import (
	"fmt"
	"time"
)

// BaseConfig is the application configuration tree. go-config populates it
// from config files and environment overrides.
type BaseConfig struct {
	Server      Server      `json:"server" koanf:"server"`
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
	SMTP        SMTP        `json:"smtp" koanf:"smtp"`
	Storage     Storage     `json:"storage" koanf:"storage"`
}

func (c *BaseConfig) Validate() error {
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if c.Persistence.DSN == "" {
		return fmt.Errorf("persistence.dsn is required")
	}
	return nil
}

func (c *BaseConfig) GetServer() Server           { return c.Server }
func (c *BaseConfig) GetAuth() *Auth              { return &c.Auth }
func (c *BaseConfig) GetPersistence() Persistence { return c.Persistence }
func (c *BaseConfig) GetSMTP() SMTP               { return c.SMTP }
func (c *BaseConfig) GetStorage() Storage         { return c.Storage }

// Server holds the HTTP listener settings.
type Server struct {
	Addr string `json:"addr" koanf:"addr"`
	// BaseURL is the public URL mail links point at.
	BaseURL string `json:"base_url" koanf:"base_url"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8080"
	}
	return s.Addr
}

func (s Server) GetBaseURL() string {
	if s.BaseURL == "" {
		return "http://localhost:8080"
	}
	return s.BaseURL
}

// Auth implements kanban.Config. Durations are stored as expressions
// ("720h") and parsed on access; a bad expression is a deployment error and
// panics at startup.
type Auth struct {
	SigningKey                   string `json:"signing_key" koanf:"signing_key"`
	Hostname                     string `json:"hostname" koanf:"hostname"`
	TokenExpirationExpression    string `json:"token_expiration" koanf:"token_expiration"`
	ActivationTokenTTLExpression string `json:"activation_token_ttl" koanf:"activation_token_ttl"`
	ResetTokenTTLExpression      string `json:"reset_token_ttl" koanf:"reset_token_ttl"`
	MailFrom                     string `json:"mail_from" koanf:"mail_from"`
}

func (a *Auth) GetSigningKey() string { return a.SigningKey }

func (a *Auth) GetHostname() string {
	if a.Hostname == "" {
		return "localhost"
	}
	return a.Hostname
}

func (a *Auth) GetTokenExpiration() time.Duration {
	return durationOr(a.TokenExpirationExpression, 30*24*time.Hour)
}

func (a *Auth) GetActivationTokenTTL() time.Duration {
	return durationOr(a.ActivationTokenTTLExpression, 7*24*time.Hour)
}

func (a *Auth) GetResetTokenTTL() time.Duration {
	return durationOr(a.ResetTokenTTLExpression, 24*time.Hour)
}

func (a *Auth) GetMailFrom() string { return a.MailFrom }

// Persistence holds storage settings.
type Persistence struct {
	Driver                string `json:"driver" koanf:"driver"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Debug                 bool   `json:"debug" koanf:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p Persistence) GetDriver() string { return p.Driver }
func (p Persistence) GetDSN() string    { return p.DSN }
func (p Persistence) GetDebug() bool    { return p.Debug }

// GetServer and GetOtelIdentifier satisfy persistence.Config; the server
// value mirrors the DSN and the otel identifier is unset.
func (p Persistence) GetServer() string         { return p.DSN }
func (p Persistence) GetOtelIdentifier() string { return "" }

func (p Persistence) GetPingTimeout() time.Duration {
	return durationOr(p.PingTimeoutExpression, 5*time.Second)
}

// SMTP holds the outbound mail relay settings.
type SMTP struct {
	Host     string `json:"host" koanf:"host"`
	Port     int    `json:"port" koanf:"port"`
	Username string `json:"username" koanf:"username"`
	Password string `json:"password" koanf:"password"`
}

func (s SMTP) GetHost() string {
	if s.Host == "" {
		return "localhost"
	}
	return s.Host
}

func (s SMTP) GetPort() int {
	if s.Port == 0 {
		return 25
	}
	return s.Port
}

func (s SMTP) GetUsername() string { return s.Username }
func (s SMTP) GetPassword() string { return s.Password }

// Storage holds the object storage settings for attachments.
type Storage struct {
	Bucket       string `json:"bucket" koanf:"bucket"`
	Region       string `json:"region" koanf:"region"`
	AccessKey    string `json:"access_key" koanf:"access_key"`
	SecretKey    string `json:"secret_key" koanf:"secret_key"`
	BaseEndpoint string `json:"base_endpoint" koanf:"base_endpoint"`
}

func durationOr(expr string, def time.Duration) time.Duration {
	if expr == "" {
		return def
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		panic(fmt.Sprintf("unable to parse time: expr %s", expr))
	}
	return dur
}
