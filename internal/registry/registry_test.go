package registry_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/glmigrate/internal/registry"
)

const (
	testConcurrentWriterCountConstant     = 8
	testMappingsPerWriterCountConstant    = 50
	testOverwriteSourceIdentifierConstant = int64(7)
)

func TestRegistryPutAndLookup(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		recordedKind          registry.EntityKind
		lookupKind            registry.EntityKind
		sourceIdentifier      int64
		destinationIdentifier int64
		expectFound           bool
	}{
		{
			name:                  "user_mapping_resolves",
			recordedKind:          registry.KindUser,
			lookupKind:            registry.KindUser,
			sourceIdentifier:      7,
			destinationIdentifier: 107,
			expectFound:           true,
		},
		{
			name:                  "kinds_are_isolated",
			recordedKind:          registry.KindUser,
			lookupKind:            registry.KindGroup,
			sourceIdentifier:      7,
			destinationIdentifier: 107,
			expectFound:           false,
		},
		{
			name:         "missing_mapping_not_found",
			recordedKind: registry.KindProject,
			lookupKind:   registry.KindProject,
			expectFound:  false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			testInstance.Parallel()

			registryInstance := registry.NewRegistry()
			if testCase.expectFound || testCase.recordedKind != testCase.lookupKind {
				registryInstance.Put(testCase.recordedKind, testCase.sourceIdentifier, testCase.destinationIdentifier)
			}

			resolvedIdentifier, mappingFound := registryInstance.Lookup(testCase.lookupKind, testCase.sourceIdentifier)
			require.Equal(testInstance, testCase.expectFound, mappingFound)
			if testCase.expectFound {
				require.Equal(testInstance, testCase.destinationIdentifier, resolvedIdentifier)
			}
		})
	}
}

func TestRegistryOverwriteKeepsLatestMapping(testInstance *testing.T) {
	testInstance.Parallel()

	registryInstance := registry.NewRegistry()
	registryInstance.Put(registry.KindGroup, testOverwriteSourceIdentifierConstant, 100)
	registryInstance.Put(registry.KindGroup, testOverwriteSourceIdentifierConstant, 200)

	resolvedIdentifier, mappingFound := registryInstance.Lookup(registry.KindGroup, testOverwriteSourceIdentifierConstant)
	require.True(testInstance, mappingFound)
	require.Equal(testInstance, int64(200), resolvedIdentifier)
	require.Equal(testInstance, 1, registryInstance.Count(registry.KindGroup))
}

func TestRegistryConcurrentWrites(testInstance *testing.T) {
	testInstance.Parallel()

	registryInstance := registry.NewRegistry()

	waitGroup := sync.WaitGroup{}
	for writerIndex := 0; writerIndex < testConcurrentWriterCountConstant; writerIndex++ {
		waitGroup.Add(1)
		go func(writerOffset int) {
			defer waitGroup.Done()
			for mappingIndex := 0; mappingIndex < testMappingsPerWriterCountConstant; mappingIndex++ {
				sourceIdentifier := int64(writerOffset*testMappingsPerWriterCountConstant + mappingIndex)
				registryInstance.Put(registry.KindProject, sourceIdentifier, sourceIdentifier+1000)
			}
		}(writerIndex)
	}
	waitGroup.Wait()

	require.Equal(testInstance, testConcurrentWriterCountConstant*testMappingsPerWriterCountConstant, registryInstance.Count(registry.KindProject))

	snapshotMappings := registryInstance.Snapshot(registry.KindProject)
	for sourceIdentifier, destinationIdentifier := range snapshotMappings {
		require.Equal(testInstance, sourceIdentifier+1000, destinationIdentifier)
	}
}
