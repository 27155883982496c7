package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestOpen_SQLiteMemory(t *testing.T) {
	gdb, err := Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	assert.Equal(t, "sqlite", gdb.Dialector.Name())

	var fk int
	require.NoError(t, gdb.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)

	require.NoError(t, Ping(context.Background(), gdb))
}
