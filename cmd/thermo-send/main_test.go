package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/sender"
)

func TestParseArgs(t *testing.T) {
	conf := sender.NewConfig()
	require.NoError(t, parseArgs(conf, []string{"250", "1"}))
	require.Equal(t, 250*time.Millisecond, conf.BitTime)
	require.True(t, conf.FEC)

	require.NoError(t, parseArgs(conf, []string{"10", "0"}))
	require.False(t, conf.FEC)

	for _, args := range [][]string{
		{},
		{"10"},
		{"abc", "0"},
		{"0", "0"},
		{"10", "yes"},
		{"10", "1", "extra"},
	} {
		require.Error(t, parseArgs(conf, args), "%v", args)
	}
}
