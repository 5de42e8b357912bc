package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/storefront/internal/config"
)

func TestPublish_RejectsBadSession(t *testing.T) {
	for _, id := range []string{"", "abc", "123e4567-e89b-12d3-a456"} {
		err := publish(config.NATSConfig{URL: "nats://127.0.0.1:1", Subject: "s"}, id)
		assert.ErrorContains(t, err, "invalid -session")
	}
}
