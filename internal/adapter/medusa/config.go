package medusa

import (
	"errors"
	"net/url"
	"strings"
)

// DefaultBaseURL — адрес бэкенда по умолчанию для локальной разработки.
const DefaultBaseURL = "http://localhost:9000"

var ErrConfigInvalidBaseURL = errors.New("medusa: base url must be an absolute http(s) url")

// Config — настройки клиента store API.
type Config struct {
	BaseURL string
	// PublishableKey отправляется в заголовке x-publishable-api-key, если задан.
	PublishableKey string
	TimeoutSeconds int
}

// Validate проверяет конфигурацию и заполняет значения по умолчанию.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrConfigInvalidBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
