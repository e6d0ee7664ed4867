package safety_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/safety"
)

const (
	prompterSubtestNameTemplateConstant = "%d_%s"
	testRequiredPhraseConstant          = "DELETE 3 CONTROLS"
	testPromptTextConstant              = "Type 'DELETE 3 CONTROLS' to confirm: "
)

func TestIOPhrasePrompterRequirePhrase(testInstance *testing.T) {
	testCases := []struct {
		name              string
		typedInput        string
		expectedConfirmed bool
	}{
		{
			name:              "ExactPhraseConfirms",
			typedInput:        "DELETE 3 CONTROLS\n",
			expectedConfirmed: true,
		},
		{
			name:              "WindowsLineEndingConfirms",
			typedInput:        "DELETE 3 CONTROLS\r\n",
			expectedConfirmed: true,
		},
		{
			name:              "WrongPhraseDeclines",
			typedInput:        "delete 3 controls\n",
			expectedConfirmed: false,
		},
		{
			name:              "PaddedPhraseDeclines",
			typedInput:        " DELETE 3 CONTROLS\n",
			expectedConfirmed: false,
		},
		{
			name:              "EmptyInputDeclines",
			typedInput:        "\n",
			expectedConfirmed: false,
		},
		{
			name:              "ClosedInputDeclines",
			typedInput:        "",
			expectedConfirmed: false,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(prompterSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			promptOutput := &bytes.Buffer{}
			prompter := safety.NewIOPhrasePrompter(strings.NewReader(testCase.typedInput), promptOutput)

			confirmed, promptError := prompter.RequirePhrase(testPromptTextConstant, testRequiredPhraseConstant)
			require.NoError(testInstance, promptError)
			require.Equal(testInstance, testCase.expectedConfirmed, confirmed)
			require.Equal(testInstance, testPromptTextConstant, promptOutput.String())
		})
	}
}
