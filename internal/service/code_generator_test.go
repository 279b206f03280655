package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
)

type stubCodeStore struct {
	mu    sync.Mutex
	live  map[string]bool
	err   error
	calls int
}

func (s *stubCodeStore) CodeInUse(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.live[code], nil
}

func TestCodeGeneratorAlphabetAndLength(t *testing.T) {
	gen := NewCodeGenerator(&stubCodeStore{}, CodeGeneratorConfig{Legible: true})

	for i := 0; i < 200; i++ {
		code, err := gen.Generate(context.Background())
		require.NoError(t, err)
		require.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(LegibleAlphabet, r), "unexpected %q in %s", r, code)
		}
		assert.True(t, ValidCodeFormat(code))
	}
}

func TestCodeGeneratorSkipsLiveCodes(t *testing.T) {
	// A tiny alphabet forces collisions so the retry path is exercised.
	store := &stubCodeStore{live: map[string]bool{}}
	gen := NewCodeGenerator(store, CodeGeneratorConfig{Length: 2, MaxAttempts: 1000})
	gen.alphabet = "AB"

	issued := map[string]bool{}
	for i := 0; i < 4; i++ {
		code, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.False(t, issued[code], "code %s issued twice", code)
		issued[code] = true
		store.live[code] = true
	}

	_, err := gen.Generate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCodeGeneration)
}

func TestCodeGeneratorExhaustsAttempts(t *testing.T) {
	store := &stubCodeStore{live: map[string]bool{"AAAA": true}}
	gen := NewCodeGenerator(store, CodeGeneratorConfig{Length: 4, MaxAttempts: 3})
	gen.random = func(max int) (int, error) { return 0, nil }

	_, err := gen.Generate(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrCodeGeneration)
	assert.Equal(t, 3, store.calls)
}

func TestCodeGeneratorStoreFailure(t *testing.T) {
	gen := NewCodeGenerator(&stubCodeStore{err: errors.New("db down")}, CodeGeneratorConfig{})

	_, err := gen.Generate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCodeGeneration)
	assert.Contains(t, err.Error(), "db down")
}

func TestNormalizeAndValidateCode(t *testing.T) {
	assert.Equal(t, "ABCD1234", NormalizeCode("  abcd1234 "))
	assert.True(t, ValidCodeFormat("ABCD1234"))
	assert.True(t, ValidCodeFormat("ABC123"))
	assert.True(t, ValidCodeFormat("ABCD"))
	assert.True(t, ValidCodeFormat(strings.Repeat("A", MaxCodeLength)))
	assert.False(t, ValidCodeFormat("ABC"))
	assert.False(t, ValidCodeFormat(strings.Repeat("A", MaxCodeLength+1)))
	assert.False(t, ValidCodeFormat("ABCD-234"))
	assert.False(t, ValidCodeFormat("abcd1234"))
}
