package config

import "github.com/joho/godotenv"

type Config interface {
	EnvConfig
	CorsConfig
	IdentityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetWebAppPort() string
	GetBackendBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() []string
}

type IdentityConfig interface {
	GetAWSRegion() string
	GetUserPoolID() string
	GetClientID() string
	GetAuthority() string
}

type mainConfig struct {
	EnvVars
	Cors
	Identity
}

func New() Config {
	// A missing .env file is fine, the environment wins anyway.
	_ = godotenv.Load()
	return mainConfig{}
}
