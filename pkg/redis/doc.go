// Package redis connects to the Redis server backing the job queue and exposes
// a health check closure for the admin surface.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	storage := queue.NewRedisStorage(client, queue.WithKeyPrefix(queueCfg.RedisKeyPrefix))
//	ping := redis.Healthcheck(client)
//
// Connect retries until the server answers PING or ConnectTimeout elapses.
package redis
