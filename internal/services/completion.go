package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/models"
)

var errEmptyCompletion = errors.New("provider returned no choices")

type CompletionRequest struct {
	Model       string
	Messages    []models.ChatMessage
	MaxTokens   int
	Temperature float32
}

type Completion struct {
	Content     string
	TotalTokens int
}

// CompletionProvider turns a role-tagged turn sequence into assistant text.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// LimitedProvider caps the number of in-flight provider calls.
type LimitedProvider struct {
	next     CompletionProvider
	rateChan chan struct{} // Token bucket
	wait     time.Duration
}

// NewLimitedProvider allows concurrentReqs calls at once. A caller waits at
// most wait for a free slot.
func NewLimitedProvider(next CompletionProvider, concurrentReqs int, wait time.Duration) *LimitedProvider {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &LimitedProvider{
		next:     next,
		rateChan: rateChan,
		wait:     wait,
	}
}

func (p *LimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if err := p.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer p.releaseRate()

	return p.next.Complete(ctx, req)
}

// acquireRate blocks until a rate slot is available
func (p *LimitedProvider) acquireRate(ctx context.Context) error {
	select {
	case <-p.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.wait):
		return fmt.Errorf("timeout waiting for provider rate slot")
	}
}

func (p *LimitedProvider) releaseRate() {
	p.rateChan <- struct{}{}
}
