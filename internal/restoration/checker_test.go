package restoration_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/restoration"
)

type stubRecordClient struct {
	collections map[auditboard.ResourceKind][]auditboard.Record
	records     map[int64]auditboard.Record
	findErrors  map[int64]error
	listError   error
}

func (client *stubRecordClient) List(_ context.Context, kind auditboard.ResourceKind) ([]auditboard.Record, error) {
	if client.listError != nil {
		return nil, client.listError
	}
	return client.collections[kind], nil
}

func (client *stubRecordClient) Find(_ context.Context, _ auditboard.ResourceKind, recordID int64) (auditboard.Record, bool, error) {
	if findError, lookupFails := client.findErrors[recordID]; lookupFails {
		return nil, false, findError
	}
	foundRecord, recordExists := client.records[recordID]
	return foundRecord, recordExists, nil
}

func TestNewCheckerRequiresClient(testInstance *testing.T) {
	checker, checkerError := restoration.NewChecker(nil, nil)
	require.ErrorIs(testInstance, checkerError, restoration.ErrClientNotConfigured)
	require.Nil(testInstance, checker)
}

func TestCheckIdentifiersCategorizesOutcomes(testInstance *testing.T) {
	client := &stubRecordClient{
		records: map[int64]auditboard.Record{
			1: {"id": float64(1), "uid": "ENT-1", "name": "Berlin Office"},
		},
		findErrors: map[int64]error{
			3: errors.New("status 500"),
		},
	}
	checker, checkerError := restoration.NewChecker(client, nil)
	require.NoError(testInstance, checkerError)

	report, checkError := checker.CheckIdentifiers(context.Background(), auditboard.ResourceEntities, []int64{1, 2, 3}, nil)
	require.NoError(testInstance, checkError)
	require.Equal(testInstance, 3, report.ExpectedCount)
	require.Len(testInstance, report.Restored, 1)
	require.Equal(testInstance, int64(1), report.Restored[0].ID)
	require.Equal(testInstance, []string{"2"}, report.StillMissing)
	require.Len(testInstance, report.CheckFailed, 1)
	require.Equal(testInstance, int64(3), report.CheckFailed[0].ID)
	require.False(testInstance, report.FullyRestored)
}

func TestCheckIdentifiersFullyRestored(testInstance *testing.T) {
	client := &stubRecordClient{
		records: map[int64]auditboard.Record{
			1: {"id": float64(1), "name": "Berlin Office"},
			2: {"id": float64(2), "name": "Tokyo Office"},
		},
	}
	checker, checkerError := restoration.NewChecker(client, nil)
	require.NoError(testInstance, checkerError)

	report, checkError := checker.CheckIdentifiers(context.Background(), auditboard.ResourceEntities, []int64{1, 2}, nil)
	require.NoError(testInstance, checkError)
	require.Len(testInstance, report.Restored, 2)
	require.Empty(testInstance, report.StillMissing)
	require.Empty(testInstance, report.CheckFailed)
	require.True(testInstance, report.FullyRestored)
}

func TestCheckIdentifiersLabelsMissingWithExpectedNames(testInstance *testing.T) {
	client := &stubRecordClient{
		records: map[int64]auditboard.Record{
			1: {"id": float64(1), "name": "Berlin Office"},
		},
		findErrors: map[int64]error{
			3: errors.New("status 500"),
		},
	}
	checker, checkerError := restoration.NewChecker(client, nil)
	require.NoError(testInstance, checkerError)

	expectedNames := map[int64]string{
		2: "Tokyo Office",
		3: "Sydney Office",
	}
	report, checkError := checker.CheckIdentifiers(context.Background(), auditboard.ResourceEntities, []int64{1, 2, 3, 4}, expectedNames)
	require.NoError(testInstance, checkError)
	require.Len(testInstance, report.Restored, 1)
	require.Equal(testInstance, []string{"Tokyo Office", "4"}, report.StillMissing)
	require.Len(testInstance, report.CheckFailed, 1)
	require.Equal(testInstance, "Sydney Office", report.CheckFailed[0].Name)
	require.False(testInstance, report.FullyRestored)
}

func TestCheckNamesMatchesCaseInsensitively(testInstance *testing.T) {
	client := &stubRecordClient{
		collections: map[auditboard.ResourceKind][]auditboard.Record{
			auditboard.ResourceEntities: {
				{"id": float64(1), "name": "Berlin Office"},
				{"id": float64(2), "name": "Tokyo Office"},
			},
		},
	}
	checker, checkerError := restoration.NewChecker(client, nil)
	require.NoError(testInstance, checkerError)

	report, checkError := checker.CheckNames(context.Background(), auditboard.ResourceEntities, []string{"berlin office", " Tokyo Office ", "Sydney Office"})
	require.NoError(testInstance, checkError)
	require.Len(testInstance, report.Restored, 2)
	require.Equal(testInstance, []string{"Sydney Office"}, report.StillMissing)
	require.False(testInstance, report.FullyRestored)
}

func TestCheckNamesListFailureMarksAllFailed(testInstance *testing.T) {
	client := &stubRecordClient{listError: errors.New("status 502")}
	checker, checkerError := restoration.NewChecker(client, nil)
	require.NoError(testInstance, checkerError)

	report, checkError := checker.CheckNames(context.Background(), auditboard.ResourceEntities, []string{"Berlin Office", "Tokyo Office"})
	require.NoError(testInstance, checkError)
	require.Empty(testInstance, report.Restored)
	require.Empty(testInstance, report.StillMissing)
	require.Len(testInstance, report.CheckFailed, 2)
	require.Equal(testInstance, "status 502", report.CheckFailed[0].Error)
	require.False(testInstance, report.FullyRestored)
}
