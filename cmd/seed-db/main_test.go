package main

import (
	"os"
	"path/filepath"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/goldwin-storefront/db"
	"github.com/xenking/goldwin-storefront/internal/catalog"
)

func TestReadCatalog(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(plain, db.Catalog, 0o600))

	compressed := filepath.Join(dir, "catalog.json.gz")
	f, err := os.Create(compressed)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write(db.Catalog)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{"", plain, compressed} {
		data, err := readCatalog(path)
		require.NoError(t, err, path)
		assert.Equal(t, db.Catalog, data, path)

		seed, err := catalog.DecodeSeed(data)
		require.NoError(t, err)
		assert.Len(t, seed.Products, 6)
	}

	_, err = readCatalog(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
