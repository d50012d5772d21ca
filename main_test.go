package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signalengine/src/server"
)

func TestResolvePort(t *testing.T) {
	t.Setenv("SERVER_PORT", "7777")
	assert.Equal(t, "7777", resolvePort())

	t.Setenv("SERVER_PORT", "")
	assert.Equal(t, server.GetConfig().Port, resolvePort(), "empty SERVER_PORT falls back to the server config")
}
