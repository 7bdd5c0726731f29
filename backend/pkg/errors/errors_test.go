package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("update company: %w", NewNotFoundError("Company", "abc"))

	assert.True(t, IsErrorType(err, ErrorTypeNotFound))
	assert.False(t, IsErrorType(err, ErrorTypeValidation))

	var nf *NotFoundError
	assert.True(t, stderrors.As(err, &nf))
	assert.Equal(t, "abc", nf.UID)
	assert.Contains(t, err.Error(), "company not found: abc")
}

func TestQueryError_CarriesEngineMessage(t *testing.T) {
	engine := stderrors.New("Invalid input 'X'")
	err := NewQueryError("MATCH (n)\n\t\tRETURN n", engine)

	assert.ErrorIs(t, err, engine)
	assert.Contains(t, err.Error(), "Invalid input 'X'")
	assert.Contains(t, err.Error(), "MATCH (n) RETURN n")
}

func TestQueryError_TruncatesOnRuneBoundary(t *testing.T) {
	query := "MATCH (n {name: '" + strings.Repeat("é", 100) + "'}) RETURN n"
	err := NewQueryError(query, stderrors.New("boom"))

	msg := err.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.Contains(t, msg, "...")
	assert.NotContains(t, msg, "RETURN n")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewConnectionError(stderrors.New("dial tcp"))))
	assert.False(t, IsRetryable(NewQueryError("RETURN 1", stderrors.New("boom"))))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}

func TestTypeOf_Uncategorized(t *testing.T) {
	_, ok := TypeOf(stderrors.New("plain"))
	assert.False(t, ok)
}
