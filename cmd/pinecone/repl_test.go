package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runREPL(t *testing.T, input string) string {
	t.Helper()
	tm, err := buildTeam(testConfig(t), newTeamLLM(), nil)
	require.NoError(t, err)

	var out bytes.Buffer
	r := newREPL(tm.director, strings.NewReader(input), &out)
	r.banner()
	require.NoError(t, r.run(context.Background()))
	return out.String()
}

func TestREPLQuestionAndHistory(t *testing.T) {
	out := runREPL(t, "what do my notes say?\n:history\n:quit\n")

	assert.True(t, strings.HasPrefix(out, banner))
	assert.Contains(t, out, "director: director saw")
	assert.Contains(t, out, divider+"\nuser: what do my notes say?")
	assert.Equal(t, 4, strings.Count(out, divider), "answer and :history both print the history block")
}

func TestREPLCommands(t *testing.T) {
	out := runREPL(t, ":history\n:nope\n:reset\n:history\nexit\nnever reached\n")

	assert.Contains(t, out, divider+"\n<empty>\n"+divider)
	assert.Contains(t, out, "Unknown command. Available: :history, :reset, :quit")
	assert.Contains(t, out, "State cleared.")
	assert.NotContains(t, out, "never reached")
}

func TestREPLErrorKeepsRunning(t *testing.T) {
	long := strings.Repeat("x", maxInputChars+1)
	out := runREPL(t, long+"\nquit\n")

	assert.Contains(t, out, "[error]")
	assert.Equal(t, 2, strings.Count(out, replPrompt))
}

func TestREPLEOF(t *testing.T) {
	out := runREPL(t, "")
	assert.True(t, strings.HasSuffix(out, replPrompt+"\n"))
}
