package winchmod

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountCacheMemoizes(t *testing.T) {
	cache := newAccountCache()
	calls := 0
	resolve := func(key string) (string, error) {
		calls++
		return "name-" + key, nil
	}

	for i := 0; i < 3; i++ {
		name, err := cache.lookup("1001", resolve)
		require.NoError(t, err)
		assert.Equal(t, "name-1001", name)
	}
	name, err := cache.lookup("513", resolve)
	require.NoError(t, err)
	assert.Equal(t, "name-513", name)
	assert.Equal(t, 2, calls)
}

func TestAccountCacheDoesNotCacheFailures(t *testing.T) {
	cache := newAccountCache()
	calls := 0
	fail := errors.New("no such account")
	resolve := func(key string) (string, error) {
		calls++
		if calls == 1 {
			return "", fail
		}
		return "found", nil
	}

	_, err := cache.lookup("42", resolve)
	assert.ErrorIs(t, err, fail)

	name, err := cache.lookup("42", resolve)
	require.NoError(t, err)
	assert.Equal(t, "found", name)
	assert.Equal(t, 2, calls)
}
