package auditboard_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/auditboard"
)

const recordSubtestNameTemplateConstant = "%d_%s"

func TestRecordIntField(testInstance *testing.T) {
	testCases := []struct {
		name          string
		record        auditboard.Record
		fieldName     string
		expectedValue int64
		expectedFound bool
	}{
		{
			name:          "DecodedFloatValue",
			record:        auditboard.Record{"id": float64(42)},
			fieldName:     "id",
			expectedValue: 42,
			expectedFound: true,
		},
		{
			name:          "NativeIntegerValue",
			record:        auditboard.Record{"region_id": int64(9)},
			fieldName:     "region_id",
			expectedValue: 9,
			expectedFound: true,
		},
		{
			name:          "JSONNumberValue",
			record:        auditboard.Record{"id": json.Number("17")},
			fieldName:     "id",
			expectedValue: 17,
			expectedFound: true,
		},
		{
			name:          "MissingField",
			record:        auditboard.Record{},
			fieldName:     "id",
			expectedFound: false,
		},
		{
			name:          "NonNumericValue",
			record:        auditboard.Record{"id": "not-a-number"},
			fieldName:     "id",
			expectedFound: false,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(recordSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			fieldValue, fieldFound := testCase.record.IntField(testCase.fieldName)
			require.Equal(testInstance, testCase.expectedFound, fieldFound)
			require.Equal(testInstance, testCase.expectedValue, fieldValue)
		})
	}
}

func TestRecordMatchesPattern(testInstance *testing.T) {
	controlRecord := auditboard.Record{"uid": "CTRL-100", "name": "Quarterly Access Review"}

	testCases := []struct {
		name          string
		pattern       string
		caseSensitive bool
		expectedMatch bool
	}{
		{name: "CaseInsensitiveNameMatch", pattern: "access review", caseSensitive: false, expectedMatch: true},
		{name: "CaseInsensitiveUIDMatch", pattern: "ctrl-100", caseSensitive: false, expectedMatch: true},
		{name: "CaseSensitiveMismatch", pattern: "access review", caseSensitive: true, expectedMatch: false},
		{name: "CaseSensitiveMatch", pattern: "Access Review", caseSensitive: true, expectedMatch: true},
		{name: "NoMatch", pattern: "incident response", caseSensitive: false, expectedMatch: false},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(recordSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedMatch, controlRecord.MatchesPattern(testCase.pattern, testCase.caseSensitive))
		})
	}
}

func TestFilterByFieldValue(testInstance *testing.T) {
	candidateRecords := []auditboard.Record{
		{"id": float64(1), "region_id": float64(10)},
		{"id": float64(2), "region_id": float64(20)},
		{"id": float64(3), "region_id": float64(10)},
		{"id": float64(4)},
	}

	filteredRecords := auditboard.FilterByFieldValue(candidateRecords, "region_id", 10)
	require.Len(testInstance, filteredRecords, 2)
	require.Equal(testInstance, int64(1), filteredRecords[0].ID())
	require.Equal(testInstance, int64(3), filteredRecords[1].ID())
}

func TestFilterByFieldMembership(testInstance *testing.T) {
	candidateRecords := []auditboard.Record{
		{"id": float64(1), "entity_id": float64(100)},
		{"id": float64(2), "entity_id": float64(200)},
		{"id": float64(3), "entity_id": float64(300)},
	}

	filteredRecords := auditboard.FilterByFieldMembership(candidateRecords, "entity_id", auditboard.IDSet([]int64{100, 300}))
	require.Len(testInstance, filteredRecords, 2)
	require.Equal(testInstance, int64(1), filteredRecords[0].ID())
	require.Equal(testInstance, int64(3), filteredRecords[1].ID())
}

func TestCollectDistinctIntField(testInstance *testing.T) {
	candidateRecords := []auditboard.Record{
		{"process_id": float64(5)},
		{"process_id": float64(5)},
		{"process_id": float64(8)},
		{"name": "no process"},
	}

	distinctValues := auditboard.CollectDistinctIntField(candidateRecords, "process_id")
	require.Equal(testInstance, []int64{5, 8}, distinctValues)
}

func TestParseResourceKind(testInstance *testing.T) {
	testCases := []struct {
		name         string
		candidate    string
		expectedKind auditboard.ResourceKind
		expectError  bool
	}{
		{name: "KnownKind", candidate: "controls", expectedKind: auditboard.ResourceControls},
		{name: "NormalizesCaseAndSpace", candidate: "  Regions ", expectedKind: auditboard.ResourceRegions},
		{name: "UnknownKind", candidate: "widgets", expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(recordSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			parsedKind, parseError := auditboard.ParseResourceKind(testCase.candidate)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedKind, parsedKind)
		})
	}
}
