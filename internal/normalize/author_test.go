package normalize

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/vocabdeck/internal/llm"
)

type scriptedProvider struct {
	replies []string
	err     error
	calls   int
}

func (p *scriptedProvider) Name() string                     { return "scripted" }
func (p *scriptedProvider) IsAvailable(context.Context) bool { return true }

func (p *scriptedProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.replies[(p.calls-1)%len(p.replies)]}, nil
}

func TestAuthorResolver_Majority(t *testing.T) {
	tests := []struct {
		name    string
		replies []string
		want    string
		found   bool
	}{
		{"two of three agree", []string{"Unknown", "J. Doe", "J. Doe"}, "J. Doe", true},
		{"no agreement", []string{"A", "B", "C"}, "", false},
		{"majority unknown", []string{"unknown", "UNKNOWN", "J. Doe"}, "", false},
		{"labels and quotes stripped", []string{`Author: "Jane Roe"`, "'Jane Roe'", "Jane Roe"}, "Jane Roe", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{replies: tt.replies}
			r := NewAuthorResolver(p, NewRunContext(), zerolog.Nop())

			got, ok := r.Resolve(context.Background(), "Some Book")
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 3, p.calls)
		})
	}
}

func TestAuthorResolver_CachesByTitle(t *testing.T) {
	p := &scriptedProvider{replies: []string{"J. Doe"}}
	r := NewAuthorResolver(p, NewRunContext(), zerolog.Nop())

	got, ok := r.Resolve(context.Background(), "Some Book")
	assert.True(t, ok)
	assert.Equal(t, "J. Doe", got)

	got, ok = r.Resolve(context.Background(), "  some book ")
	assert.True(t, ok)
	assert.Equal(t, "J. Doe", got)
	assert.Equal(t, 3, p.calls)
}

func TestAuthorResolver_CachesUnresolved(t *testing.T) {
	p := &scriptedProvider{replies: []string{"A", "B", "C"}}
	r := NewAuthorResolver(p, NewRunContext(), zerolog.Nop())

	_, ok := r.Resolve(context.Background(), "Some Book")
	assert.False(t, ok)
	_, ok = r.Resolve(context.Background(), "Some Book")
	assert.False(t, ok)
	assert.Equal(t, 3, p.calls)
}

func TestAuthorResolver_TransportFailureIsAbsent(t *testing.T) {
	p := &scriptedProvider{err: errors.New("connection refused")}
	r := NewAuthorResolver(p, NewRunContext(), zerolog.Nop())

	got, ok := r.Resolve(context.Background(), "Some Book")
	assert.False(t, ok)
	assert.Empty(t, got)

	// Failures are not memoized.
	r.Resolve(context.Background(), "Some Book")
	assert.Equal(t, 2, p.calls)
}
