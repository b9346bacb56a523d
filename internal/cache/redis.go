// Package cache хранит в Redis кеш курсов, jti действующих refresh-токенов
// и отметки об отправленных уведомлениях.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/materials-api/internal/config"
)

// Cache — обёртка над клиентом Redis.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// Ping проверяет доступность Redis.
func (c *Cache) Ping(ctx context.Context) error {
	return c.Db.Ping(ctx).Err()
}

// Close закрывает соединение.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// Get читает JSON по ключу в result. Отсутствие ключа — (false, nil).
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет value в JSON с временем жизни expiration.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CourseKey — ключ кеша курса.
func CourseKey(id int64) string {
	return "course:" + strconv.FormatInt(id, 10)
}

func refreshKey(jti string) string {
	return "refresh:" + jti
}

// StoreRefresh запоминает jti refresh-токена пользователя на время его жизни.
func (c *Cache) StoreRefresh(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	const op = "cache.StoreRefresh"
	if err := c.Db.Set(ctx, refreshKey(jti), userID, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RefreshOwner возвращает ID владельца refresh-токена, если jti ещё действителен.
func (c *Cache) RefreshOwner(ctx context.Context, jti string) (int64, bool, error) {
	const op = "cache.RefreshOwner"
	id, err := c.Db.Get(ctx, refreshKey(jti)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return id, true, nil
}

func notifiedKey(courseID int64, lastUpdate time.Time) string {
	return fmt.Sprintf("notified:course:%d:%d", courseID, lastUpdate.Unix())
}

// WasNotified сообщает, отправлялось ли уведомление для данной версии курса.
func (c *Cache) WasNotified(ctx context.Context, courseID int64, lastUpdate time.Time) (bool, error) {
	const op = "cache.WasNotified"
	n, err := c.Db.Exists(ctx, notifiedKey(courseID, lastUpdate)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// MarkNotified отмечает версию курса как разосланную.
func (c *Cache) MarkNotified(ctx context.Context, courseID int64, lastUpdate time.Time, ttl time.Duration) error {
	const op = "cache.MarkNotified"
	if err := c.Db.Set(ctx, notifiedKey(courseID, lastUpdate), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
