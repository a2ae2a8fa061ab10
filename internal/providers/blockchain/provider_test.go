package blockchain

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/pkg/models"
)

func TestBlockHeight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/q/getblockcount" {
			t.Errorf("path = %q, want /q/getblockcount", r.URL.Path)
		}
		fmt.Fprint(w, "840123\n")
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	height, err := p.BlockHeight(context.Background())
	if err != nil {
		t.Fatalf("BlockHeight failed: %v", err)
	}
	if height != 840123 {
		t.Errorf("height = %d, want 840123", height)
	}
}

func TestBlockHeightMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	if _, err := p.BlockHeight(context.Background()); err == nil {
		t.Fatal("expected error for non-numeric body")
	}
}

func TestCountdownAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		height        int64
		wantNext      int64
		wantRemaining int64
	}{
		{840123, 1_050_000, 209_877},
		{209_999, 210_000, 1},
		// A boundary height counts toward the next interval.
		{840_000, 1_050_000, 210_000},
	}
	for _, tt := range tests {
		cd := CountdownAt(tt.height, now)
		if cd.HalvingHeight != tt.wantNext {
			t.Errorf("height %d: halving at %d, want %d", tt.height, cd.HalvingHeight, tt.wantNext)
		}
		if cd.BlocksRemaining != tt.wantRemaining {
			t.Errorf("height %d: %d blocks remaining, want %d", tt.height, cd.BlocksRemaining, tt.wantRemaining)
		}
		wantETA := now.Add(time.Duration(tt.wantRemaining) * 10 * time.Minute)
		if !cd.EstimatedAt.Equal(wantETA) {
			t.Errorf("height %d: ETA %v, want %v", tt.height, cd.EstimatedAt, wantETA)
		}
	}
}

func TestBlockHeightFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "840123")
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	f := p.Fetcher(provider.ModelBlockHeight)
	if f == nil {
		t.Fatal("missing block height fetcher")
	}

	res, err := f.Fetch(context.Background(), provider.QueryParams{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	cd, ok := res.Data.(*models.HalvingCountdown)
	if !ok {
		t.Fatalf("data type = %T, want *models.HalvingCountdown", res.Data)
	}
	if cd.CurrentHeight != 840123 {
		t.Errorf("current height = %d, want 840123", cd.CurrentHeight)
	}

	res, err = f.Fetch(context.Background(), provider.QueryParams{})
	if err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if !res.Cached {
		t.Error("second fetch should come from cache")
	}
}
