package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procsift/procsift/internal/models"
)

func TestWriteAndOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_result.json")
	w := NewWriter(path)

	require.NoError(t, w.Write([]models.CanonicalOrder{
		{PurchaseNumber: "N-1"},
		{PurchaseNumber: "N-2"},
	}))

	var got []models.CanonicalOrder
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "N-1", got[0].PurchaseNumber)

	// A later run replaces the file wholesale.
	require.NoError(t, w.Write([]models.CanonicalOrder{{PurchaseNumber: "N-3"}}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "N-3", got[0].PurchaseNumber)
}

func TestWriteEmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_result.json")
	w := NewWriter(path)

	require.NoError(t, w.Write(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestWriteCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "last_result.json")
	w := NewWriter(path)

	require.NoError(t, w.Write(nil))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
