package safety_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/safety"
)

const (
	gateSubtestNameTemplateConstant = "%d_%s"
	testItemTypeConstant            = "controls"
	testSandboxBaseURLConstant      = "https://acme.sandbox.auditboardapp.com"
	testProductionBaseURLConstant   = "https://acme.auditboardapp.com"
)

type recordingOutput struct {
	infoLines    []string
	warningLines []string
	errorLines   []string
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

type stubPrompter struct {
	response      bool
	promptedText  string
	requiredText  string
	invocationCnt int
}

func (prompter *stubPrompter) RequirePhrase(promptText string, requiredPhrase string) (bool, error) {
	prompter.invocationCnt++
	prompter.promptedText = promptText
	prompter.requiredText = requiredPhrase
	return prompter.response, nil
}

func TestDeletionPhrase(testInstance *testing.T) {
	require.Equal(testInstance, "DELETE 12 CONTROLS", safety.DeletionPhrase(12, "controls"))
	require.Equal(testInstance, "DELETE 1 REGIONS", safety.DeletionPhrase(1, "regions"))
}

func TestGateConfirmDeletion(testInstance *testing.T) {
	testCases := []struct {
		name                string
		dryRun              bool
		requireConfirmation bool
		skipConfirmation    bool
		prompterResponse    bool
		expectedConfirmed   bool
		expectedPrompts     int
	}{
		{
			name:                "DryRunSkipsPrompt",
			dryRun:              true,
			requireConfirmation: true,
			expectedConfirmed:   true,
			expectedPrompts:     0,
		},
		{
			name:                "SkipFlagBypassesPrompt",
			requireConfirmation: true,
			skipConfirmation:    true,
			expectedConfirmed:   true,
			expectedPrompts:     0,
		},
		{
			name:              "DisabledConfirmationBypassesPrompt",
			expectedConfirmed: true,
			expectedPrompts:   0,
		},
		{
			name:                "ExactPhraseConfirms",
			requireConfirmation: true,
			prompterResponse:    true,
			expectedConfirmed:   true,
			expectedPrompts:     1,
		},
		{
			name:                "DeclinedPhraseCancels",
			requireConfirmation: true,
			prompterResponse:    false,
			expectedConfirmed:   false,
			expectedPrompts:     1,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(gateSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			prompter := &stubPrompter{response: testCase.prompterResponse}
			output := &recordingOutput{}
			gate := safety.NewGate(prompter, output, nil, safety.Configuration{RequireConfirmation: testCase.requireConfirmation}, testCase.dryRun)

			confirmed, confirmationError := gate.ConfirmDeletion(testItemTypeConstant, 3, "", testCase.skipConfirmation)
			require.NoError(testInstance, confirmationError)
			require.Equal(testInstance, testCase.expectedConfirmed, confirmed)
			require.Equal(testInstance, testCase.expectedPrompts, prompter.invocationCnt)

			if testCase.expectedPrompts > 0 {
				require.Equal(testInstance, safety.DeletionPhrase(3, testItemTypeConstant), prompter.requiredText)
			}
		})
	}
}

func TestGateConfirmProduction(testInstance *testing.T) {
	testCases := []struct {
		name              string
		dryRun            bool
		baseURL           string
		prompterResponse  bool
		expectedConfirmed bool
		expectedPrompts   int
	}{
		{
			name:              "DryRunSkipsProductionCheck",
			dryRun:            true,
			baseURL:           testProductionBaseURLConstant,
			expectedConfirmed: true,
			expectedPrompts:   0,
		},
		{
			name:              "SandboxURLSkipsPrompt",
			baseURL:           testSandboxBaseURLConstant,
			expectedConfirmed: true,
			expectedPrompts:   0,
		},
		{
			name:              "ProductionRequiresPhrase",
			baseURL:           testProductionBaseURLConstant,
			prompterResponse:  true,
			expectedConfirmed: true,
			expectedPrompts:   1,
		},
		{
			name:              "ProductionDeclined",
			baseURL:           testProductionBaseURLConstant,
			prompterResponse:  false,
			expectedConfirmed: false,
			expectedPrompts:   1,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(gateSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			prompter := &stubPrompter{response: testCase.prompterResponse}
			output := &recordingOutput{}
			gate := safety.NewGate(prompter, output, nil, safety.Configuration{RequireConfirmation: true}, testCase.dryRun)

			confirmed, confirmationError := gate.ConfirmProduction(testCase.baseURL)
			require.NoError(testInstance, confirmationError)
			require.Equal(testInstance, testCase.expectedConfirmed, confirmed)
			require.Equal(testInstance, testCase.expectedPrompts, prompter.invocationCnt)

			if testCase.expectedPrompts > 0 {
				require.True(testInstance, strings.Contains(prompter.requiredText, "PRODUCTION"))
			}
		})
	}
}

func TestGateCountdownDryRunSkipsWait(testInstance *testing.T) {
	prompter := &stubPrompter{}
	output := &recordingOutput{}
	gate := safety.NewGate(prompter, output, nil, safety.Configuration{RequireConfirmation: true}, true)

	countdownError := gate.Countdown(context.Background(), 5)
	require.NoError(testInstance, countdownError)
	require.Empty(testInstance, output.warningLines)
}
