package profile

import (
	"testing"

	"github.com/clemjvdm/libcal-cli/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	p := &models.Profile{
		FirstName:     "Jan",
		LastName:      "de Vries",
		Email:         "j.de.vries@student.rug.nl",
		Phone:         "0612345678",
		StudentNumber: "s1234567",
		Mod:           3,
	}
	require.NoError(t, store.Save(p))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestStoreSaveCreatesDirectory(t *testing.T) {
	store := NewStore(t.TempDir() + "/nested/dir")
	require.NoError(t, store.Save(&models.Profile{Email: "x@student.rug.nl"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "x@student.rug.nl", loaded.Email)
}
