package gateway

import (
	"testing"
	"time"
)

func TestIsReady(t *testing.T) {
	t.Parallel()

	svc := &Service{channelStates: map[string]channelState{"greenapi": {Running: true}}}
	if svc.isReady() {
		t.Fatal("expected not ready without provider health")
	}

	svc.providerLastOKAt = time.Now().UTC()
	if !svc.isReady() {
		t.Fatal("expected ready with running channel and healthy provider")
	}

	svc.providerLastErr = "boom"
	if svc.isReady() {
		t.Fatal("expected not ready when provider has error")
	}

	svc.providerLastErr = ""
	svc.channelStates["greenapi"] = channelState{Running: false, Error: "stopped"}
	if svc.isReady() {
		t.Fatal("expected not ready without a running channel")
	}
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	if got := errorString(nil); got != "" {
		t.Fatalf("errorString(nil) = %q, want empty", got)
	}
}
