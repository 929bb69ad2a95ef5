package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEventKinds(t *testing.T) {
	kinds, err := ParseEventKinds("")
	require.NoError(t, err)
	require.Equal(t, AllEventKinds(), kinds)

	kinds, err = ParseEventKinds("Insert, delete,insert")
	require.NoError(t, err)
	require.Equal(t, []EventKind{EventInsert, EventDelete}, kinds)
	require.Equal(t, "insert,delete", JoinEventKinds(kinds))

	_, err = ParseEventKinds("insert,truncate")
	require.Error(t, err)
}
