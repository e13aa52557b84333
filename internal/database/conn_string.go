package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/elevenfingers/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode(cfg.SSLMode)}}.Encode(),
	}
	return u.String()
}

func sslMode(mode string) string {
	if mode == "" {
		return "prefer"
	}
	return mode
}
