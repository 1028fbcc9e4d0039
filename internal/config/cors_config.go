package config

import "strings"

const allowedOriginsVar = "ALLOWED_ORIGINS"

type Cors struct{}

var _ CorsConfig = Cors{}

// GetAllowedOrigins parses the comma-separated ALLOWED_ORIGINS variable.
// The default covers the local web app.
func (Cors) GetAllowedOrigins() []string {
	raw := GetEnv(allowedOriginsVar, "http://localhost:3000")
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
