package deletion_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/deletion"
)

const targetsSubtestNameTemplateConstant = "%d_%s"

type stubFinder struct {
	collections map[auditboard.ResourceKind][]auditboard.Record
	records     map[int64]auditboard.Record
	findError   error
}

func (finder *stubFinder) List(_ context.Context, kind auditboard.ResourceKind) ([]auditboard.Record, error) {
	return finder.collections[kind], nil
}

func (finder *stubFinder) Find(_ context.Context, _ auditboard.ResourceKind, recordID int64) (auditboard.Record, bool, error) {
	if finder.findError != nil {
		return nil, false, finder.findError
	}
	foundRecord, recordExists := finder.records[recordID]
	return foundRecord, recordExists, nil
}

func TestSelectorValidate(testInstance *testing.T) {
	testCases := []struct {
		name          string
		selector      deletion.Selector
		expectedError error
	}{
		{
			name:          "EmptySelectorRejected",
			selector:      deletion.Selector{},
			expectedError: deletion.ErrNoSelector,
		},
		{
			name:          "ConflictingSelectorsRejected",
			selector:      deletion.Selector{IDs: []int64{1}, Pattern: "review"},
			expectedError: deletion.ErrMultipleSelectors,
		},
		{
			name:     "SingleSelectorAccepted",
			selector: deletion.Selector{IDsFilePath: "targets.yaml"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(targetsSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			validationError := testCase.selector.Validate()
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, validationError, testCase.expectedError)
				return
			}
			require.NoError(testInstance, validationError)
		})
	}
}

func TestTargetResolverSkipsMissingIdentifiers(testInstance *testing.T) {
	finder := &stubFinder{
		records: map[int64]auditboard.Record{
			1: {"id": float64(1), "name": "Control One"},
			3: {"id": float64(3), "name": "Control Three"},
		},
	}
	resolver, resolverError := deletion.NewTargetResolver(finder, nil)
	require.NoError(testInstance, resolverError)

	resolvedRecords, resolveError := resolver.Resolve(context.Background(), auditboard.ResourceControls, deletion.Selector{IDs: []int64{1, 2, 3}})
	require.NoError(testInstance, resolveError)
	require.Len(testInstance, resolvedRecords, 2)
	require.Equal(testInstance, int64(1), resolvedRecords[0].ID())
	require.Equal(testInstance, int64(3), resolvedRecords[1].ID())
}

func TestTargetResolverAbortsOnTransportError(testInstance *testing.T) {
	transportError := errors.New("connection reset")
	resolver, resolverError := deletion.NewTargetResolver(&stubFinder{findError: transportError}, nil)
	require.NoError(testInstance, resolverError)

	resolvedRecords, resolveError := resolver.Resolve(context.Background(), auditboard.ResourceControls, deletion.Selector{IDs: []int64{1}})
	require.ErrorIs(testInstance, resolveError, transportError)
	require.Nil(testInstance, resolvedRecords)
}

func TestTargetResolverPatternSelection(testInstance *testing.T) {
	finder := &stubFinder{
		collections: map[auditboard.ResourceKind][]auditboard.Record{
			auditboard.ResourceControls: {
				{"id": float64(1), "uid": "CTRL-1", "name": "Quarterly Access Review"},
				{"id": float64(2), "uid": "CTRL-2", "name": "Vendor Approval"},
			},
		},
	}
	resolver, resolverError := deletion.NewTargetResolver(finder, nil)
	require.NoError(testInstance, resolverError)

	resolvedRecords, resolveError := resolver.Resolve(context.Background(), auditboard.ResourceControls, deletion.Selector{Pattern: "access review"})
	require.NoError(testInstance, resolveError)
	require.Len(testInstance, resolvedRecords, 1)
	require.Equal(testInstance, int64(1), resolvedRecords[0].ID())
}

func TestTargetResolverPatternRejectsOtherKinds(testInstance *testing.T) {
	resolver, resolverError := deletion.NewTargetResolver(&stubFinder{}, nil)
	require.NoError(testInstance, resolverError)

	_, resolveError := resolver.Resolve(context.Background(), auditboard.ResourceEntities, deletion.Selector{Pattern: "office"})
	require.Error(testInstance, resolveError)
	require.Contains(testInstance, resolveError.Error(), "entities")
}

func TestLoadIdentifierFile(testInstance *testing.T) {
	testCases := []struct {
		name          string
		fileName      string
		fileContents  string
		expectedIDs   []int64
		expectedError bool
	}{
		{
			name:         "BareJSONList",
			fileName:     "targets.json",
			fileContents: "[1, 2, 3]",
			expectedIDs:  []int64{1, 2, 3},
		},
		{
			name:         "JSONDocumentWithIDsKey",
			fileName:     "targets.json",
			fileContents: `{"ids": [4, 5]}`,
			expectedIDs:  []int64{4, 5},
		},
		{
			name:         "BareYAMLList",
			fileName:     "targets.yaml",
			fileContents: "- 7\n- 8\n",
			expectedIDs:  []int64{7, 8},
		},
		{
			name:         "YAMLDocumentWithIDsKey",
			fileName:     "targets.yaml",
			fileContents: "ids:\n  - 9\n",
			expectedIDs:  []int64{9},
		},
		{
			name:          "EmptyFileRejected",
			fileName:      "targets.json",
			fileContents:  "[]",
			expectedError: true,
		},
		{
			name:          "MalformedFileRejected",
			fileName:      "targets.json",
			fileContents:  "{not json",
			expectedError: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(targetsSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			filePath := filepath.Join(testInstance.TempDir(), testCase.fileName)
			require.NoError(testInstance, os.WriteFile(filePath, []byte(testCase.fileContents), 0o600))

			identifiers, loadError := deletion.LoadIdentifierFile(filePath)
			if testCase.expectedError {
				require.Error(testInstance, loadError)
				return
			}
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedIDs, identifiers)
		})
	}
}
