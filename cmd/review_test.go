package cmd

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func testContext(t *testing.T, values map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("pr", "", "")
	set.String("event-path", "", "")
	for name, value := range values {
		require.NoError(t, set.Set(name, value))
	}
	return cli.NewContext(nil, set, nil)
}

func writeEvent(t *testing.T, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))
	return path
}

func TestResolveRef(t *testing.T) {
	t.Parallel()

	ref, err := resolveRef("octo/widgets/7")
	require.NoError(t, err)
	require.Equal(t, "octo", ref.Owner)
	require.Equal(t, "widgets", ref.Repo)
	require.Equal(t, 7, ref.Number)

	_, err = resolveRef("octo/widgets")
	require.Error(t, err)

	_, err = resolveRef("octo/widgets/zero")
	require.Error(t, err)

	_, err = resolveRef("octo/widgets/0")
	require.Error(t, err)
}

func TestResolveTargetPrefersPRFlag(t *testing.T) {
	t.Parallel()

	c := testContext(t, map[string]string{"pr": "octo/widgets/42"})
	target, ok, err := resolveTarget(c, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "octo/widgets#42", target.Ref.String())
	require.Empty(t, target.BaseSHA)
	require.Empty(t, target.HeadSHA)
}

func TestResolveTargetReadsOpenedEvent(t *testing.T) {
	t.Parallel()

	path := writeEvent(t, `{
		"action": "opened",
		"number": 9,
		"repository": {"name": "widgets", "owner": {"login": "octo"}}
	}`)
	c := testContext(t, map[string]string{"event-path": path})

	target, ok, err := resolveTarget(c, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "octo/widgets#9", target.Ref.String())
	require.Empty(t, target.BaseSHA)
}

func TestResolveTargetSynchronizeSetsRange(t *testing.T) {
	t.Parallel()

	path := writeEvent(t, `{
		"action": "synchronize",
		"number": 9,
		"before": "abc123",
		"after": "def456",
		"repository": {"name": "widgets", "owner": {"login": "octo"}}
	}`)
	c := testContext(t, map[string]string{"event-path": path})

	target, ok, err := resolveTarget(c, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", target.BaseSHA)
	require.Equal(t, "def456", target.HeadSHA)
}

func TestResolveTargetSkipsUnsupportedAction(t *testing.T) {
	t.Parallel()

	path := writeEvent(t, `{
		"action": "labeled",
		"number": 9,
		"repository": {"name": "widgets", "owner": {"login": "octo"}}
	}`)
	c := testContext(t, map[string]string{"event-path": path})

	_, ok, err := resolveTarget(c, zerolog.Nop())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveTargetWithoutSourceFails(t *testing.T) {
	t.Parallel()

	_, _, err := resolveTarget(testContext(t, nil), zerolog.Nop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "--pr")
}
