package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("Deposit\n1\n")
	uri, err := store.PutObject(context.Background(), "runs/Mar 4 2025.csv", "text/csv", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "memory://runs/Mar 4 2025.csv", uri)

	payload[0] = 'X'
	got, ok := store.Get("runs/Mar 4 2025.csv")
	require.True(t, ok)
	require.Equal(t, "Deposit\n1\n", string(got))

	got[0] = 'Y'
	again, _ := store.Get("runs/Mar 4 2025.csv")
	require.Equal(t, byte('D'), again[0])

	_, ok = store.Get("missing")
	require.False(t, ok)
	require.Equal(t, []string{"runs/Mar 4 2025.csv"}, store.Paths())
}
