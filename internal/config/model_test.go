package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validModel() *Model {
	return &Model{
		Pipeline: &Pipeline{
			Environments: []*Environment{
				{
					Name: "metrics",
					Layers: []*Layer{
						{Kind: LayerSystemPkgs, Name: "tooling", Install: []string{"apk", "add", "gcc"}, Cleanup: []string{"apk", "del", "gcc"}},
						{Kind: LayerAppPayload, Name: "sources", Copy: []string{"metrics"}},
					},
				},
			},
			Jobs: []*Job{
				{Name: "lint", Environment: "metrics", Command: []string{"ruff", "check", "."}},
				{Name: "test", Environment: "metrics", Command: []string{"pytest"}, DependsOn: []string{"lint"}},
			},
		},
	}
}

func TestModelValidate_Valid(t *testing.T) {
	require.NoError(t, validModel().Validate())
}

func TestModelValidate_DuplicateEnvironment(t *testing.T) {
	m := validModel()
	m.Pipeline.Environments = append(m.Pipeline.Environments, m.Pipeline.Environments[0])

	err := m.Validate()
	require.Error(t, err)
	require.IsType(t, &ConfigurationError{}, err)
	require.Contains(t, err.Error(), "duplicate environment")
}

func TestModelValidate_DuplicateJob(t *testing.T) {
	m := validModel()
	m.Pipeline.Jobs = append(m.Pipeline.Jobs, m.Pipeline.Jobs[0])

	require.ErrorContains(t, m.Validate(), "duplicate job")
}

func TestModelValidate_UnknownEnvironmentReference(t *testing.T) {
	m := validModel()
	m.Pipeline.Jobs[0].Environment = "missing"

	require.ErrorContains(t, m.Validate(), `unknown environment "missing"`)
}

func TestModelValidate_UnknownLayerKind(t *testing.T) {
	m := validModel()
	m.Pipeline.Environments[0].Layers[0].Kind = "container-image"

	require.ErrorContains(t, m.Validate(), "unknown kind")
}

func TestModelValidate_EmptyCommand(t *testing.T) {
	m := validModel()
	m.Pipeline.Jobs[0].Command = nil

	require.ErrorContains(t, m.Validate(), "empty command")
}

func TestModelValidate_LayerWithoutActions(t *testing.T) {
	m := validModel()
	m.Pipeline.Environments[0].Layers[1] = &Layer{Kind: LayerAppPayload, Name: "empty"}

	require.ErrorContains(t, m.Validate(), "neither install nor copy")
}

func TestModelValidate_CleanupWithoutInstall(t *testing.T) {
	m := validModel()
	m.Pipeline.Environments[0].Layers[1] = &Layer{
		Kind: LayerAppPayload, Name: "odd",
		Copy:    []string{"metrics"},
		Cleanup: []string{"rm", "-rf", "tmp"},
	}

	require.ErrorContains(t, m.Validate(), "pairs a cleanup with no install")
}

func TestPipelineEnvironmentLookup(t *testing.T) {
	m := validModel()
	require.NotNil(t, m.Pipeline.Environment("metrics"))
	require.Nil(t, m.Pipeline.Environment("nope"))
}
