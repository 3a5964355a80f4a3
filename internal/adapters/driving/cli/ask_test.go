package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_PrintsAnswer(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "How", "far", "is", "a", "parsec?"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "A parsec is about 3.26 light years.")
	assert.NotContains(t, buf.String(), "State:")
	assert.Equal(t, "How far is a parsec?", answerService.(*mockAnswerService).question)
}

func TestAskCmd_Trace(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "--trace", "How far is a parsec?"})
	defer func() {
		rootCmd.SetArgs(nil)
		askVerbose = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "State: direct_answer, rounds: 2, 120ms")
	assert.Contains(t, buf.String(), "1. convert_distance (ok)")
}

func TestAskCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "--json", "How far is a parsec?"})
	defer func() {
		rootCmd.SetArgs(nil)
		askJSON = false
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	var out askOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "direct_answer", out.State)
	assert.False(t, out.Degraded)
	assert.Equal(t, []string{"convert_distance"}, out.ToolCalls)
	assert.Equal(t, int64(120), out.ElapsedMS)
}

func TestAskCmd_DegradedAnswerStillPrinted(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	reason := fmt.Errorf("%w: connection refused", domain.ErrLLMUnavailable)
	answerService = &mockAnswerService{
		answer: domain.Answer{
			Text:     domain.MsgUnableToComplete,
			State:    domain.StateDegraded,
			Degraded: true,
			Reason:   reason,
		},
		err: reason,
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "What is a parsec?"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, buf.String(), domain.MsgUnableToComplete)
}

func TestAskCmd_NoRelevantContentIsNotAnError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	answerService = &mockAnswerService{answer: domain.Answer{
		Text:     domain.MsgNoRelevantContent,
		State:    domain.StateDegraded,
		Degraded: true,
	}}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "Who won the football?"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), domain.MsgNoRelevantContent)
}

func TestAskCmd_NoLLMConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	answerService = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "What is a parsec?"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.ErrorIs(t, err, errAnswerDisabled)
}
