package cloud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationTableAddDuplicate(t *testing.T) {
	table := newCorrelationTable()

	_, err := table.add("1", "VIN1", KindRealtime)
	require.NoError(t, err)

	_, err = table.add("1", "VIN2", KindGPS)
	assert.Error(t, err, "one live entry per serial")
	assert.Equal(t, 1, table.size())
}

func TestCorrelationTableResolve(t *testing.T) {
	table := newCorrelationTable()

	p, err := table.add("1", "VIN1", KindRealtime)
	require.NoError(t, err)

	ok := table.resolve("1", Result{Source: SourcePush})
	require.True(t, ok)
	assert.Zero(t, table.size())

	res := <-p.ch
	assert.Equal(t, SourcePush, res.Source)

	// a second resolve for the same serial finds nothing
	assert.False(t, table.resolve("1", Result{Source: SourcePush}))
}

func TestCorrelationTableRemoveThenResolve(t *testing.T) {
	table := newCorrelationTable()

	p, err := table.add("1", "VIN1", KindGPS)
	require.NoError(t, err)
	table.remove("1")

	assert.False(t, table.resolve("1", Result{Source: SourcePush}))
	select {
	case <-p.ch:
		t.Fatal("removed entry must not receive a result")
	default:
	}
}

func TestCorrelationTableResolveOldest(t *testing.T) {
	table := newCorrelationTable()

	first, err := table.add("1", "VIN1", KindCommand)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = table.add("2", "VIN1", KindCommand)
	require.NoError(t, err)
	// different vin and kind never match
	_, err = table.add("3", "VIN2", KindCommand)
	require.NoError(t, err)
	_, err = table.add("4", "VIN1", KindGPS)
	require.NoError(t, err)

	ok := table.resolveOldest("VIN1", KindCommand, Result{Source: SourcePush})
	require.True(t, ok)
	assert.Equal(t, 3, table.size())

	res := <-first.ch
	assert.Equal(t, SourcePush, res.Source)
}

func TestCorrelationTableResolveOldestNoMatch(t *testing.T) {
	table := newCorrelationTable()

	_, err := table.add("1", "VIN1", KindRealtime)
	require.NoError(t, err)

	assert.False(t, table.resolveOldest("VIN1", KindGPS, Result{}))
	assert.False(t, table.resolveOldest("VIN2", KindRealtime, Result{}))
	assert.Equal(t, 1, table.size())
}
