package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedCommandsWithoutDatabase(t *testing.T) {
	t.Setenv("DATABASE_URI", "")
	require.NoError(t, os.Unsetenv("DATABASE_URI"))

	for _, args := range [][]string{{"help"}, {"help", "search"}, {"completion", "bash"}} {
		t.Run(args[len(args)-1], func(t *testing.T) {
			a := &app{}
			var out bytes.Buffer

			root := newRootCmd(a)
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs(args)

			require.NoError(t, root.ExecuteContext(context.Background()))
			assert.NotEmpty(t, out.String())
			assert.Nil(t, a.store)
			assert.NoError(t, a.close())
		})
	}
}

func TestStoreCommandsRequireDatabase(t *testing.T) {
	t.Setenv("DATABASE_URI", "")
	require.NoError(t, os.Unsetenv("DATABASE_URI"))

	a := &app{}
	root := newRootCmd(a)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"count", "golang"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URI")
	assert.NoError(t, a.close())
}
