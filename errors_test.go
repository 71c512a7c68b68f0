package schemakit_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/schemakit"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := schemakit.NewNotFoundError("users")
		assert.Equal(t, `schemakit: table "users" not found`, err.Error())
		assert.Equal(t, "users", err.Table())
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := schemakit.NewNotFoundError("posts")
		assert.True(t, errors.Is(err, schemakit.ErrNotFound))
		assert.True(t, schemakit.IsNotFound(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, schemakit.IsNotFound(wrapped))

		// Sentinel error
		assert.True(t, schemakit.IsNotFound(schemakit.ErrNotFound))

		// Non-matching error
		assert.False(t, schemakit.IsNotFound(errors.New("other error")))
		assert.False(t, schemakit.IsNotFound(nil))
	})
}

func TestUnsupportedError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := schemakit.NewUnsupportedError("sqlite", "rename column")
		assert.Equal(t, "schemakit: rename column is not supported by sqlite", err.Error())

		err.Reason = "no ORDER BY clause"
		assert.Equal(t, "schemakit: rename column is not supported by sqlite: no ORDER BY clause", err.Error())
	})

	t.Run("IsUnsupported", func(t *testing.T) {
		err := fmt.Errorf("ddl: %w", schemakit.NewUnsupportedError("sqlite", "drop column"))
		assert.True(t, schemakit.IsUnsupported(err))
		assert.True(t, errors.Is(err, schemakit.ErrUnsupported))
		assert.False(t, schemakit.IsUnsupported(schemakit.ErrNoColumns))
		assert.False(t, schemakit.IsUnsupported(nil))
	})
}

func TestNoColumnsError(t *testing.T) {
	err := schemakit.NewNoColumnsError("users", "updated")
	assert.Equal(t, `schemakit: no columns are being updated for table "users"`, err.Error())
	assert.True(t, schemakit.IsNoColumns(err))
	assert.True(t, errors.Is(err, schemakit.ErrNoColumns))
	assert.False(t, schemakit.IsNoColumns(errors.New("other error")))
}

func TestMetadataError(t *testing.T) {
	cause := errors.New("connection reset")
	err := schemakit.NewMetadataError("users", "columns", cause)
	assert.Equal(t, `schemakit: loading columns of "users": connection reset`, err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, schemakit.IsMetadataError(fmt.Errorf("wrap: %w", err)))

	err = schemakit.NewMetadataError("", "table names", cause)
	assert.Equal(t, "schemakit: loading table names: connection reset", err.Error())
	assert.False(t, schemakit.IsMetadataError(cause))
}

func TestCacheKey(t *testing.T) {
	k := schemakit.CacheKey{Namespace: "abc", Dialect: "mysql", Table: "users"}
	assert.Equal(t, "schemakit:mysql:abc:", k.Prefix())
	assert.Equal(t, "schemakit:mysql:abc:users", k.String())
}
