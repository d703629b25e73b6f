package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv("PEMINJAMAN_INSTANCE_ID", " api-2 ")
	require.Equal(t, "api-2", GetID())
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("PEMINJAMAN_INSTANCE_ID", "")
	require.NotEmpty(t, GetID())
}
