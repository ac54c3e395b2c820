package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kasupel/internal/config"
)

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := &config.Config{Port: 0, DatabasePath: "kasupel.db"}
	assert.Error(t, cfg.Validate())

	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyDatabasePath(t *testing.T) {
	cfg := &config.Config{Port: 8080, DatabasePath: ""}
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsSaneConfig(t *testing.T) {
	cfg := &config.Config{Port: 8080, DatabasePath: "kasupel.db"}
	assert.NoError(t, cfg.Validate())
}
