package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Snoglet99/JobAgent/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_NewsOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	articles := []models.NewsArticle{
		{Title: "Acme posts record earnings", Link: "https://news.test/1"},
		{Title: "Acme expands into APAC", Link: "https://news.test/2"},
	}

	if err := cache.SetNews(ctx, "Acme", articles, time.Hour); err != nil {
		t.Fatalf("SetNews failed: %v", err)
	}

	got, hit, err := cache.GetNews(ctx, "Acme")
	if err != nil {
		t.Fatalf("GetNews failed: %v", err)
	}
	if !hit {
		t.Fatal("Expected a cache hit")
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(got))
	}
	if got[0].Title != articles[0].Title {
		t.Errorf("Expected title %q, got %q", articles[0].Title, got[0].Title)
	}

	// Unknown company is a miss, not an error.
	_, hit, err = cache.GetNews(ctx, "Initech")
	if err != nil {
		t.Fatalf("GetNews for unknown company should not error: %v", err)
	}
	if hit {
		t.Error("Expected a cache miss")
	}

	if err := cache.DeleteNews(ctx, "Acme"); err != nil {
		t.Fatalf("DeleteNews failed: %v", err)
	}

	_, hit, err = cache.GetNews(ctx, "Acme")
	if err != nil {
		t.Fatalf("GetNews after delete failed: %v", err)
	}
	if hit {
		t.Error("Deleted entry should be a miss")
	}
}

func TestCache_EmptyResultIsStillAHit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	if err := cache.SetNews(ctx, "Quiet Co", []models.NewsArticle{}, time.Hour); err != nil {
		t.Fatalf("SetNews failed: %v", err)
	}

	got, hit, err := cache.GetNews(ctx, "Quiet Co")
	if err != nil {
		t.Fatalf("GetNews failed: %v", err)
	}
	if !hit {
		t.Fatal("Cached empty result should be a hit")
	}
	if len(got) != 0 {
		t.Errorf("Expected no articles, got %d", len(got))
	}
}

func TestCache_NewsExpiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	if err := cache.SetNews(ctx, "Acme", []models.NewsArticle{{Title: "headline"}}, time.Minute); err != nil {
		t.Fatalf("SetNews failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, hit, err := cache.GetNews(ctx, "Acme")
	if err != nil {
		t.Fatalf("GetNews after expiry failed: %v", err)
	}
	if hit {
		t.Error("Expired entry should be a miss")
	}
}
