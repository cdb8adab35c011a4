package metrics

import (
	"context"
	"errors"
	"net"

	"github.com/redis/go-redis/v9"
)

// RedisHook instruments every command issued through a go-redis client.
// Install it with client.AddHook(metrics.RedisHook{}).
type RedisHook struct{}

var _ redis.Hook = RedisHook{}

// DialHook passes dials through unchanged
func (RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// ProcessHook records a single command
func (RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		RecordRedisOperation(cmd.Name(), commandError(err))
		return err
	}
}

// ProcessPipelineHook records each command of a pipeline or transaction
func (RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			RecordRedisOperation(cmd.Name(), commandError(cmd.Err()))
		}
		return err
	}
}

// a missing key is a normal reply, not a failure
func commandError(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
