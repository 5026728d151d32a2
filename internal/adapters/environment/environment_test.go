package environment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.trai.ch/anvil/internal/adapters/environment"
)

func TestFactory_BuildEnvironment_OverridesWin(t *testing.T) {
	t.Setenv("ANVIL_TEST_VAR", "from-host")

	f := environment.New()
	env := f.BuildEnvironment(map[string]string{"ANVIL_TEST_VAR": "from-target"})

	assert.Contains(t, env, "ANVIL_TEST_VAR=from-target")
}

func TestFactory_BuildEnvironment_InheritsHost(t *testing.T) {
	t.Setenv("ANVIL_ANOTHER_VAR", "value")

	f := environment.New()
	env := f.BuildEnvironment(nil)

	assert.Contains(t, env, "ANVIL_ANOTHER_VAR=value")
}
