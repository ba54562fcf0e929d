package utils

import (
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
)

// GetRedisClient returns a client connected to the Redis instance specified by
// env. The client is safe for concurrent use.
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	})
}
