package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Snoglet99/JobAgent/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// News Cache Operations

// SetNews memoizes the filtered articles for a company name
func (c *Cache) SetNews(ctx context.Context, company string, articles []models.NewsArticle, ttl time.Duration) error {
	data, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("failed to marshal articles: %w", err)
	}

	key := fmt.Sprintf("news:%s", company)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetNews retrieves memoized articles for a company name. A cache miss
// returns (nil, false, nil); an empty cached result is still a hit.
func (c *Cache) GetNews(ctx context.Context, company string) ([]models.NewsArticle, bool, error) {
	key := fmt.Sprintf("news:%s", company)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil // Cache miss
		}
		return nil, false, fmt.Errorf("failed to get news from cache: %w", err)
	}

	var articles []models.NewsArticle
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal articles: %w", err)
	}

	return articles, true, nil
}

// DeleteNews drops the memoized articles for a company name
func (c *Cache) DeleteNews(ctx context.Context, company string) error {
	key := fmt.Sprintf("news:%s", company)
	return c.client.Del(ctx, key).Err()
}
