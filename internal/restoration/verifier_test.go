package restoration_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/restoration"
)

const verifierSubtestNameTemplateConstant = "%d_%s"

func TestVerifierStatuses(testInstance *testing.T) {
	client := &stubRecordClient{
		records: map[int64]auditboard.Record{
			1: {"id": float64(1), "name": "Berlin Office", "region_id": float64(4), "entity_type_id": float64(2)},
			2: {"id": float64(2), "name": "Tokyo Office", "region_id": float64(9)},
		},
	}
	verifier, verifierError := restoration.NewVerifier(client, nil)
	require.NoError(testInstance, verifierError)

	originalRecords := []auditboard.Record{
		{"id": float64(1), "name": "Berlin Office", "region_id": float64(4), "entity_type_id": float64(2)},
		{"id": float64(2), "name": "Tokyo Office", "region_id": float64(8)},
		{"id": float64(3), "name": "Sydney Office"},
	}

	report, verifyError := verifier.Verify(context.Background(), auditboard.ResourceEntities, originalRecords)
	require.NoError(testInstance, verifyError)
	require.Equal(testInstance, 3, report.TotalExpected)
	require.Equal(testInstance, 1, report.PerfectCount)
	require.Equal(testInstance, 1, report.PartialCount)
	require.Equal(testInstance, 1, report.NotFoundCount)
	require.False(testInstance, report.PerfectRestoration)

	require.Len(testInstance, report.Records, 3)
	require.Equal(testInstance, restoration.StatusPerfect, report.Records[0].Status)
	require.Equal(testInstance, int64(1), report.Records[0].RestoredID)

	partialVerification := report.Records[1]
	require.Equal(testInstance, restoration.StatusPartial, partialVerification.Status)
	require.Equal(testInstance, int64(2), partialVerification.RestoredID)
	require.Len(testInstance, partialVerification.Differences, 1)
	require.Equal(testInstance, "region_id", partialVerification.Differences[0].Field)

	require.Equal(testInstance, restoration.StatusNotFound, report.Records[2].Status)
	require.Equal(testInstance, "Sydney Office", report.Records[2].Name)
}

func TestVerifierRenamedRecordIsPartial(testInstance *testing.T) {
	client := &stubRecordClient{
		records: map[int64]auditboard.Record{
			7: {"id": float64(7), "name": "Y"},
		},
	}
	verifier, verifierError := restoration.NewVerifier(client, nil)
	require.NoError(testInstance, verifierError)

	report, verifyError := verifier.Verify(context.Background(), auditboard.ResourceEntities, []auditboard.Record{
		{"id": float64(7), "name": "X"},
	})
	require.NoError(testInstance, verifyError)
	require.Equal(testInstance, 1, report.PartialCount)
	require.Zero(testInstance, report.NotFoundCount)

	renamedVerification := report.Records[0]
	require.Equal(testInstance, restoration.StatusPartial, renamedVerification.Status)
	require.Equal(testInstance, int64(7), renamedVerification.RestoredID)
	require.Len(testInstance, renamedVerification.Differences, 1)
	require.Equal(testInstance, "name", renamedVerification.Differences[0].Field)
	require.Equal(testInstance, "X", renamedVerification.Differences[0].Expected)
	require.Equal(testInstance, "Y", renamedVerification.Differences[0].Actual)
}

func TestVerifierNormalizesNumericRepresentations(testInstance *testing.T) {
	client := &stubRecordClient{
		records: map[int64]auditboard.Record{
			40: {"id": float64(40), "name": "Vendor Approval", "subprocess_id": float64(30)},
		},
	}
	verifier, verifierError := restoration.NewVerifier(client, nil)
	require.NoError(testInstance, verifierError)

	originalRecords := []auditboard.Record{
		{"id": int64(40), "name": "Vendor Approval", "subprocess_id": int(30)},
	}

	report, verifyError := verifier.Verify(context.Background(), auditboard.ResourceControls, originalRecords)
	require.NoError(testInstance, verifyError)
	require.Equal(testInstance, 1, report.PerfectCount)
	require.True(testInstance, report.PerfectRestoration)
}

func TestVerifierSkipsFieldsAbsentFromOriginal(testInstance *testing.T) {
	client := &stubRecordClient{
		records: map[int64]auditboard.Record{
			1: {"id": float64(1), "name": "Berlin Office", "region_id": float64(4), "entity_type_id": float64(2)},
		},
	}
	verifier, verifierError := restoration.NewVerifier(client, nil)
	require.NoError(testInstance, verifierError)

	originalRecords := []auditboard.Record{
		{"id": float64(1), "name": "Berlin Office"},
	}

	report, verifyError := verifier.Verify(context.Background(), auditboard.ResourceEntities, originalRecords)
	require.NoError(testInstance, verifyError)
	require.Equal(testInstance, restoration.StatusPerfect, report.Records[0].Status)
}

func TestVerifierOriginalWithoutIdentifierIsNotFound(testInstance *testing.T) {
	verifier, verifierError := restoration.NewVerifier(&stubRecordClient{}, nil)
	require.NoError(testInstance, verifierError)

	report, verifyError := verifier.Verify(context.Background(), auditboard.ResourceEntities, []auditboard.Record{
		{"name": "Berlin Office"},
	})
	require.NoError(testInstance, verifyError)
	require.Equal(testInstance, restoration.StatusNotFound, report.Records[0].Status)
	require.Equal(testInstance, "Berlin Office", report.Records[0].Name)
}

func TestVerifierAbortsOnLookupFailure(testInstance *testing.T) {
	lookupError := errors.New("status 502")
	client := &stubRecordClient{
		findErrors: map[int64]error{4: lookupError},
	}
	verifier, verifierError := restoration.NewVerifier(client, nil)
	require.NoError(testInstance, verifierError)

	_, verifyError := verifier.Verify(context.Background(), auditboard.ResourceEntities, []auditboard.Record{
		{"id": float64(4), "name": "Berlin Office"},
	})
	require.ErrorIs(testInstance, verifyError, lookupError)
}

func TestLoadOriginalRecords(testInstance *testing.T) {
	testCases := []struct {
		name          string
		fileContents  string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "BareRecordList",
			fileContents:  `[{"id": 1, "name": "Berlin Office"}, {"id": 2, "name": "Tokyo Office"}]`,
			expectedCount: 2,
		},
		{
			name:          "DeletionReportWithDeletedKey",
			fileContents:  `{"run_id": "abc", "deleted": [{"id": 1, "name": "Berlin Office"}]}`,
			expectedCount: 1,
		},
		{
			name:          "AnalysisReportWithEntitiesKey",
			fileContents:  `{"entities": [{"id": 1, "name": "Berlin Office"}]}`,
			expectedCount: 1,
		},
		{
			name:          "EmptyDocumentRejected",
			fileContents:  `{"deleted": []}`,
			expectedError: true,
		},
		{
			name:          "MalformedFileRejected",
			fileContents:  `{not json`,
			expectedError: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(verifierSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			filePath := filepath.Join(testInstance.TempDir(), "original.json")
			require.NoError(testInstance, os.WriteFile(filePath, []byte(testCase.fileContents), 0o600))

			originalRecords, loadError := restoration.LoadOriginalRecords(filePath)
			if testCase.expectedError {
				require.Error(testInstance, loadError)
				return
			}
			require.NoError(testInstance, loadError)
			require.Len(testInstance, originalRecords, testCase.expectedCount)
		})
	}
}
