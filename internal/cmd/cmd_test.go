package cmd_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/internal/cmd"
	"github.com/dmitrymomot/starter/internal/user"
)

func run(args ...string) (string, error) {
	root := cmd.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	t.Parallel()
	root := cmd.NewRootCmd()

	for _, path := range [][]string{{"serve"}, {"migrate"}, {"user", "create"}} {
		c, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}

	create, _, err := root.Find([]string{"user", "create"})
	require.NoError(t, err)
	for _, flag := range []string{"name", "email", "password", "role"} {
		assert.NotNil(t, create.Flags().Lookup(flag), flag)
	}
	assert.Equal(t, "user", create.Flags().Lookup("role").DefValue)
}

func TestUserCreateValidation(t *testing.T) {
	t.Parallel()

	t.Run("required flags", func(t *testing.T) {
		t.Parallel()
		_, err := run("user", "create", "--name", "Ada")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email")
	})

	t.Run("unknown role", func(t *testing.T) {
		t.Parallel()
		_, err := run("user", "create", "--name", "Ada", "--email", "ada@example.com", "--password", "s3cret-pass", "--role", "root")
		assert.ErrorIs(t, err, user.ErrInvalidRole)
	})
}

func TestServeRejectsArgs(t *testing.T) {
	t.Parallel()
	_, err := run("serve", "extra")
	assert.Error(t, err)
}
