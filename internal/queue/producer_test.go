package queue

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSubject(t *testing.T) {
	assert.Equal(t, "race.results.abc", ResultSubject("abc"))
}

func TestNewProducer_UnreachableFailsFast(t *testing.T) {
	// Reserve a port and release it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	start := time.Now()
	p, err := NewProducer("nats://" + addr)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Nil(t, p)
	assert.Less(t, elapsed, ConnectTimeout, "connect must not retry")
}
