package share

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	slug, err := store.Put([]byte("payload"))
	require.NoError(t, err)
	require.NotEmpty(t, slug)

	data, err := store.Get(slug)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestGetMissingSlugReturnsNotFound(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("NoSuchSlug0000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetRejectsSlugWithPathSeparator(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("../etc/passwd")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesBlob(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	slug, err := store.Put([]byte("gone-soon"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(slug))

	_, err = store.Get(slug)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOnMissingSlugIsNotAnError(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Delete("GhostSlug0001"))
}

func TestGenerateSlugShapeAndVocabulary(t *testing.T) {
	slug, err := generateSlug()
	require.NoError(t, err)
	require.Greater(t, len(slug), 4)

	digits := slug[len(slug)-4:]
	for _, r := range digits {
		require.True(t, r >= '0' && r <= '9')
	}

	words := slug[:len(slug)-4]
	inVocabulary := false
	for _, adj := range adjectives {
		for _, animal := range animals {
			if words == adj+animal {
				inVocabulary = true
			}
		}
	}
	require.True(t, inVocabulary, "slug %q is not <Adjective><Animal><DDDD>", slug)
}

func TestPutProducesDistinctSlugsAcrossManyCalls(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		slug, err := store.Put([]byte("x"))
		require.NoError(t, err)
		seen[slug] = true
	}
	require.Greater(t, len(seen), 1, "20 random slugs should not all collide")
}
