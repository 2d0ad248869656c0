package core

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// CancellationToken signals early termination to an in-flight request. The
// transport derives the request context from it, so signaling aborts the
// network exchange.
type CancellationToken struct {
	ctx      context.Context
	cancel   context.CancelFunc
	canceled atomic.Bool
}

func NewCancellationToken(parent context.Context) *CancellationToken {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &CancellationToken{ctx: ctx, cancel: cancel}
}

func (t *CancellationToken) Cancel() {
	if t == nil {
		return
	}
	t.canceled.Store(true)
	t.cancel()
}

// release frees the token context without marking the token canceled.
func (t *CancellationToken) release() {
	if t == nil {
		return
	}
	t.cancel()
}

func (t *CancellationToken) IsCanceled() bool {
	if t == nil {
		return false
	}
	return t.canceled.Load()
}

func (t *CancellationToken) Context() context.Context {
	if t == nil {
		return context.Background()
	}
	return t.ctx
}

func (t *CancellationToken) Done() <-chan struct{} {
	return t.Context().Done()
}

// PendingRequest pairs an eventual response with a cancel operation. The
// token context is released once the request settles, or once the response
// body is closed when there is one.
type PendingRequest struct {
	id    string
	token *CancellationToken
	done  chan struct{}

	mu       sync.Mutex
	settled  bool
	response *http.Response
	err      error
}

// StartCancellable runs call in the background with a fresh cancellation
// token and returns immediately.
func StartCancellable(
	ctx context.Context,
	call func(ctx context.Context, token *CancellationToken) (*http.Response, error),
) *PendingRequest {
	if ctx == nil {
		ctx = context.Background()
	}
	pending := &PendingRequest{
		id:    uuid.NewString(),
		token: NewCancellationToken(ctx),
		done:  make(chan struct{}),
	}
	go func() {
		response, err := call(pending.token.Context(), pending.token)
		pending.settle(response, err)
	}()
	return pending
}

func (p *PendingRequest) ID() string {
	if p == nil {
		return ""
	}
	return p.id
}

func (p *PendingRequest) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request settles.
func (p *PendingRequest) Wait() (*http.Response, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.response, p.err
}

// Cancel rejects an unsettled request with the canonical cancellation error
// and aborts it. Once settled, Cancel does nothing.
func (p *PendingRequest) Cancel() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return
	}
	p.token.Cancel()
	p.settled = true
	p.err = NewCanceledError(context.Canceled)
	close(p.done)
}

func (p *PendingRequest) settle(response *http.Response, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		if response != nil && response.Body != nil {
			_ = response.Body.Close()
		}
		return
	}
	p.settled = true
	if response != nil && response.Body != nil {
		response.Body = &tokenReleasingBody{ReadCloser: response.Body, release: p.token.release}
	} else {
		p.token.release()
	}
	p.response = response
	p.err = err
	close(p.done)
}

type tokenReleasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *tokenReleasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}
