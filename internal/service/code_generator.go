package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
)

const (
	// LegibleAlphabet omits 0, O, 1 and I.
	LegibleAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// FullAlphabet is every uppercase letter and digit.
	FullAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MinCodeLength and MaxCodeLength bound every code ever issued, whatever the
	// current length setting. The column holds at most 32 characters.
	MinCodeLength = 4
	MaxCodeLength = 32

	defaultCodeLength      = 8
	defaultCodeMaxAttempts = 10
)

type codeStore interface {
	CodeInUse(ctx context.Context, code string) (bool, error)
}

// CodeGeneratorConfig shapes generated access codes.
type CodeGeneratorConfig struct {
	Length      int
	MaxAttempts int
	Legible     bool
}

// CodeGenerator issues access codes that no unclaimed record holds.
type CodeGenerator struct {
	store       codeStore
	alphabet    string
	length      int
	maxAttempts int
	random      func(max int) (int, error)
}

// NewCodeGenerator constructs a CodeGenerator.
func NewCodeGenerator(store codeStore, cfg CodeGeneratorConfig) *CodeGenerator {
	if cfg.Length < MinCodeLength || cfg.Length > MaxCodeLength {
		cfg.Length = defaultCodeLength
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultCodeMaxAttempts
	}
	alphabet := FullAlphabet
	if cfg.Legible {
		alphabet = LegibleAlphabet
	}
	return &CodeGenerator{
		store:       store,
		alphabet:    alphabet,
		length:      cfg.Length,
		maxAttempts: cfg.MaxAttempts,
		random:      cryptoRandomIndex,
	}
}

// Generate draws codes until one is free. Any store failure aborts with
// CodeGenerationFailed rather than risking a duplicate.
func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.draw()
		if err != nil {
			return "", appErrors.WrapAs(err, appErrors.ErrCodeGeneration, "")
		}
		inUse, err := g.store.CodeInUse(ctx, code)
		if err != nil {
			return "", appErrors.WrapAs(err, appErrors.ErrCodeGeneration, "")
		}
		if !inUse {
			return code, nil
		}
	}
	return "", appErrors.WrapAs(fmt.Errorf("no free code after %d attempts", g.maxAttempts), appErrors.ErrCodeGeneration, "")
}

func (g *CodeGenerator) draw() (string, error) {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		idx, err := g.random(len(g.alphabet))
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(g.alphabet[idx])
	}
	return b.String(), nil
}

// NormalizeCode trims surrounding whitespace and uppercases the code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidCodeFormat reports whether a normalized code could have been issued: uppercase
// letters and digits only, within the length bounds. Codes issued under an older length
// setting stay valid, so the store decides whether a code is live.
func ValidCodeFormat(code string) bool {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func cryptoRandomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
