package deletion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/safety"
)

const serviceSubtestNameTemplateConstant = "%d_%s"

type stubDeleter struct {
	failingIDs map[int64]error
	deletedIDs []int64
}

func (deleter *stubDeleter) DeleteRecord(_ context.Context, _ auditboard.ResourceKind, recordID int64) error {
	if deleteError, shouldFail := deleter.failingIDs[recordID]; shouldFail {
		return deleteError
	}
	deleter.deletedIDs = append(deleter.deletedIDs, recordID)
	return nil
}

type stubGate struct {
	confirmed        bool
	confirmationErr  error
	confirmedCounts  []int
	countdownSeconds []int
}

func (gate *stubGate) ConfirmDeletion(_ string, itemCount int, _ string, _ bool) (bool, error) {
	gate.confirmedCounts = append(gate.confirmedCounts, itemCount)
	return gate.confirmed, gate.confirmationErr
}

func (gate *stubGate) Countdown(_ context.Context, seconds int) error {
	gate.countdownSeconds = append(gate.countdownSeconds, seconds)
	return nil
}

type recordingOutput struct {
	infoLines    []string
	warningLines []string
	errorLines   []string
	successLines []string
}

func (output *recordingOutput) Info(format string, arguments ...any) {
	output.infoLines = append(output.infoLines, fmt.Sprintf(format, arguments...))
}

func (output *recordingOutput) Warning(format string, arguments ...any) {
	output.warningLines = append(output.warningLines, fmt.Sprintf(format, arguments...))
}

func (output *recordingOutput) Error(format string, arguments ...any) {
	output.errorLines = append(output.errorLines, fmt.Sprintf(format, arguments...))
}

func (output *recordingOutput) Success(format string, arguments ...any) {
	output.successLines = append(output.successLines, fmt.Sprintf(format, arguments...))
}

func newBatchTargets(targetCount int) []auditboard.Record {
	targets := make([]auditboard.Record, 0, targetCount)
	for targetIndex := 0; targetIndex < targetCount; targetIndex++ {
		targets = append(targets, auditboard.Record{
			"id":   float64(targetIndex + 1),
			"uid":  fmt.Sprintf("CTRL-%d", targetIndex+1),
			"name": fmt.Sprintf("Control %d", targetIndex+1),
		})
	}
	return targets
}

func newTestService(testInstance *testing.T, deleter *stubDeleter, gate *stubGate, output *recordingOutput) *Service {
	testInstance.Helper()
	service, serviceError := NewService(deleter, gate, output, nil, nil, Configuration{PauseEveryN: 2}, safety.Configuration{})
	require.NoError(testInstance, serviceError)
	return service
}

func TestNewServiceValidation(testInstance *testing.T) {
	_, missingDeleterError := NewService(nil, &stubGate{}, &recordingOutput{}, nil, nil, Configuration{}, safety.Configuration{})
	require.ErrorIs(testInstance, missingDeleterError, ErrDeleterNotConfigured)

	_, missingGateError := NewService(&stubDeleter{}, nil, &recordingOutput{}, nil, nil, Configuration{}, safety.Configuration{})
	require.ErrorIs(testInstance, missingGateError, ErrGateNotConfigured)
}

func TestDeleteBatchOutcomes(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		targetCount          int
		dryRun               bool
		failingIDs           map[int64]error
		expectedDeletedCount int
		expectedFailedCount  int
		expectedAPIDeletes   int
	}{
		{
			name:                 "DryRunDeletesNothing",
			targetCount:          3,
			dryRun:               true,
			expectedDeletedCount: 3,
			expectedFailedCount:  0,
			expectedAPIDeletes:   0,
		},
		{
			name:                 "LiveRunDeletesAll",
			targetCount:          3,
			expectedDeletedCount: 3,
			expectedFailedCount:  0,
			expectedAPIDeletes:   3,
		},
		{
			name:                 "FailedRecordDoesNotStopBatch",
			targetCount:          4,
			failingIDs:           map[int64]error{2: errors.New("status 500")},
			expectedDeletedCount: 3,
			expectedFailedCount:  1,
			expectedAPIDeletes:   3,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(serviceSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			deleter := &stubDeleter{failingIDs: testCase.failingIDs}
			gate := &stubGate{confirmed: true}
			service := newTestService(testInstance, deleter, gate, &recordingOutput{})
			service.sleep = func(context.Context, time.Duration) error { return nil }

			report, batchError := service.DeleteBatch(context.Background(), auditboard.ResourceControls, newBatchTargets(testCase.targetCount), Options{DryRun: testCase.dryRun})
			require.NoError(testInstance, batchError)
			require.Equal(testInstance, testCase.targetCount, report.Total)
			require.Len(testInstance, report.Deleted, testCase.expectedDeletedCount)
			require.Len(testInstance, report.Failed, testCase.expectedFailedCount)
			require.Equal(testInstance, report.Total, len(report.Deleted)+len(report.Failed))
			require.Len(testInstance, deleter.deletedIDs, testCase.expectedAPIDeletes)
		})
	}
}

func TestDeleteBatchDeclinedConfirmationCancels(testInstance *testing.T) {
	deleter := &stubDeleter{}
	gate := &stubGate{confirmed: false}
	service := newTestService(testInstance, deleter, gate, &recordingOutput{})

	_, batchError := service.DeleteBatch(context.Background(), auditboard.ResourceControls, newBatchTargets(2), Options{})
	require.ErrorIs(testInstance, batchError, ErrCancelled)
	require.Empty(testInstance, deleter.deletedIDs)
	require.Equal(testInstance, []int{2}, gate.confirmedCounts)
}

func TestDeleteBatchEmptyTargetsWarnsWithoutConfirmation(testInstance *testing.T) {
	gate := &stubGate{confirmed: true}
	output := &recordingOutput{}
	service := newTestService(testInstance, &stubDeleter{}, gate, output)

	report, batchError := service.DeleteBatch(context.Background(), auditboard.ResourceControls, nil, Options{})
	require.NoError(testInstance, batchError)
	require.Zero(testInstance, report.Total)
	require.Empty(testInstance, gate.confirmedCounts)
	require.Equal(testInstance, []string{noTargetsMessageConstant}, output.warningLines)
}

func TestDeleteBatchPacing(testInstance *testing.T) {
	testCases := []struct {
		name           string
		targetCount    int
		dryRun         bool
		expectedSleeps int
	}{
		{name: "LiveRunPausesBetweenGroups", targetCount: 5, expectedSleeps: 2},
		{name: "NoPauseAfterLastRecord", targetCount: 4, expectedSleeps: 1},
		{name: "DryRunNeverPauses", targetCount: 5, dryRun: true, expectedSleeps: 0},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(serviceSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			service := newTestService(testInstance, &stubDeleter{}, &stubGate{confirmed: true}, &recordingOutput{})
			sleepCount := 0
			service.sleep = func(context.Context, time.Duration) error {
				sleepCount++
				return nil
			}

			_, batchError := service.DeleteBatch(context.Background(), auditboard.ResourceControls, newBatchTargets(testCase.targetCount), Options{DryRun: testCase.dryRun})
			require.NoError(testInstance, batchError)
			require.Equal(testInstance, testCase.expectedSleeps, sleepCount)
		})
	}
}
