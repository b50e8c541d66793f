package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"valuation-form-go/internal/config"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}
