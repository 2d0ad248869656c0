package core

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestPendingRequest_CancelBeforeSettlementRejects(t *testing.T) {
	aborted := make(chan struct{})
	pending := StartCancellable(context.Background(), func(ctx context.Context, _ *CancellationToken) (*http.Response, error) {
		<-ctx.Done()
		close(aborted)
		return nil, ctx.Err()
	})

	pending.Cancel()
	_, err := pending.Wait()
	if err == nil || err.Error() != "Request canceled" {
		t.Fatalf("expected canonical cancellation error, got %v", err)
	}
	if !IsCanceled(err) {
		t.Fatalf("expected cancellation classification")
	}

	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected in-flight call to observe cancellation")
	}
}

func TestPendingRequest_CancelAfterSettlementIsInert(t *testing.T) {
	pending := StartCancellable(context.Background(), func(context.Context, *CancellationToken) (*http.Response, error) {
		return newTestResponse(http.StatusOK, nil, map[string]any{"ok": true}), nil
	})
	<-pending.Done()

	pending.Cancel()
	resp, err := pending.Wait()
	if err != nil {
		t.Fatalf("expected settled response to survive cancel, got %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestPendingRequest_ReleasesTokenContextAfterBodyClose(t *testing.T) {
	var token *CancellationToken
	pending := StartCancellable(context.Background(), func(_ context.Context, tok *CancellationToken) (*http.Response, error) {
		token = tok
		return newTestResponse(http.StatusOK, nil, map[string]any{"ok": true}), nil
	})
	resp, err := pending.Wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}

	select {
	case <-token.Done():
		t.Fatalf("expected token context to stay live while the body is open")
	default:
	}

	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	_ = resp.Body.Close()

	select {
	case <-token.Done():
	default:
		t.Fatalf("expected token context to be released after body close")
	}
	if token.IsCanceled() {
		t.Fatalf("expected release not to mark the token canceled")
	}

	pending.Cancel()
	if again, err := pending.Wait(); err != nil || again != resp {
		t.Fatalf("expected settled response to survive cancel, got %v %v", again, err)
	}
}

func TestPendingRequest_ReleasesTokenContextOnError(t *testing.T) {
	var token *CancellationToken
	pending := StartCancellable(context.Background(), func(_ context.Context, tok *CancellationToken) (*http.Response, error) {
		token = tok
		return nil, NewAPIError(http.StatusBadGateway, "Bad Gateway", nil)
	})
	<-pending.Done()

	select {
	case <-token.Done():
	default:
		t.Fatalf("expected token context to be released on settlement")
	}
	if token.IsCanceled() {
		t.Fatalf("expected release not to mark the token canceled")
	}
}

func TestPendingRequest_SettledErrorSurvivesCancel(t *testing.T) {
	failure := NewAPIError(http.StatusConflict, "Conflict", nil)
	pending := StartCancellable(context.Background(), func(context.Context, *CancellationToken) (*http.Response, error) {
		return nil, failure
	})
	<-pending.Done()
	pending.Cancel()

	_, err := pending.Wait()
	if !errors.Is(err, failure) {
		t.Fatalf("expected original error, got %v", err)
	}
}

func TestPendingRequest_IndependentTokens(t *testing.T) {
	release := make(chan struct{})
	call := func(ctx context.Context, _ *CancellationToken) (*http.Response, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return newTestResponse(http.StatusOK, nil, nil), nil
		}
	}
	first := StartCancellable(context.Background(), call)
	second := StartCancellable(context.Background(), call)
	if first.ID() == second.ID() {
		t.Fatalf("expected distinct request ids")
	}

	first.Cancel()
	close(release)

	if _, err := first.Wait(); !IsCanceled(err) {
		t.Fatalf("expected first request to be canceled, got %v", err)
	}
	resp, err := second.Wait()
	if err != nil {
		t.Fatalf("expected second request to be unaffected, got %v", err)
	}
	_ = resp.Body.Close()
}

func TestCancellationToken_Signals(t *testing.T) {
	token := NewCancellationToken(context.Background())
	if token.IsCanceled() {
		t.Fatalf("expected fresh token not to be canceled")
	}
	token.Cancel()
	if !token.IsCanceled() {
		t.Fatalf("expected token to report cancellation")
	}
	select {
	case <-token.Done():
	default:
		t.Fatalf("expected token context to be done")
	}

	var missing *CancellationToken
	if missing.IsCanceled() {
		t.Fatalf("expected nil token not to be canceled")
	}
}
