package safety

import (
	"bufio"
	"io"
	"strings"
)

// PhrasePrompter requests a typed confirmation phrase from the operator.
type PhrasePrompter interface {
	RequirePhrase(promptText string, requiredPhrase string) (bool, error)
}

// IOPhrasePrompter reads confirmation phrases from an io.Reader. EOF and
// interrupted input count as declined, never as failure.
type IOPhrasePrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOPhrasePrompter constructs a prompter from the provided reader and writer.
func NewIOPhrasePrompter(input io.Reader, output io.Writer) *IOPhrasePrompter {
	return &IOPhrasePrompter{reader: bufio.NewReader(input), writer: output}
}

// RequirePhrase writes the prompt and accepts only an exact match of the
// required phrase.
func (prompter *IOPhrasePrompter) RequirePhrase(promptText string, requiredPhrase string) (bool, error) {
	if prompter.writer != nil {
		if _, writeError := io.WriteString(prompter.writer, promptText); writeError != nil {
			return false, writeError
		}
	}

	response, readError := prompter.reader.ReadString('\n')
	if readError != nil && readError != io.EOF {
		return false, readError
	}

	return strings.TrimRight(response, "\r\n") == requiredPhrase, nil
}
