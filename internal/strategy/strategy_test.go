package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub is a fixed-output strategy for registry tests.
type stub struct{ out string }

func (s stub) Evaluate(context.Context, string, *Environment) (string, error) {
	return s.out, nil
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("evaluate", stub{out: "a"}))
	require.NoError(t, r.Register("clear", stub{out: "b"}))

	s, err := r.Resolve("evaluate")
	require.NoError(t, err)
	out, err := s.Evaluate(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "a", out)

	assert.Equal(t, []string{"clear", "evaluate"}, r.Directives())
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("nope")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("evaluate", stub{}))

	err := r.Register("evaluate", stub{})
	require.Error(t, err, "a directive must resolve to exactly one strategy")
}

func TestRegistryRejectsEmptyAndNil(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", stub{}))
	assert.Error(t, r.Register("x", nil))
}

func TestEnvironmentForDocument(t *testing.T) {
	run := &Environment{Vars: map[string]string{"lang": "en"}}
	env := run.ForDocument("/notes/today.md")

	assert.Equal(t, "/notes/today.md", env.File)
	assert.Equal(t, "/notes", env.Dir)
	assert.Equal(t, "en", env.Vars["lang"], "run variables are shared")
}

func TestEnvironmentSnapshot(t *testing.T) {
	env := &Environment{
		File: "/notes/today.md",
		Dir:  "/notes",
		Vars: map[string]string{"lang": "en"},
	}
	snapshot := env.Snapshot()

	assert.Equal(t, map[string]string{
		"cwf":  "/notes/today.md",
		"cwd":  "/notes",
		"lang": "en",
	}, snapshot)

	// The snapshot is a copy: mutating it must not leak back.
	snapshot["lang"] = "fr"
	assert.Equal(t, "en", env.Vars["lang"])
}

func TestClearIsIdempotent(t *testing.T) {
	clear := NewClear()
	ctx := context.Background()

	once, err := clear.Evaluate(ctx, "anything", &Environment{})
	require.NoError(t, err)
	twice, err := clear.Evaluate(ctx, once, &Environment{})
	require.NoError(t, err)

	assert.Equal(t, "", once)
	assert.Equal(t, once, twice, "clearing twice equals clearing once")
}
