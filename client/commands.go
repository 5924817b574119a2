package client

import (
	"context"

	"github.com/jord1e/lettuce-core/protocol"
)

// Typed command builders. Each one is a thin wrapper that picks the right
// output shape for the reply, submits through the pipeline, and blocks on the
// completion handle. Callers that want to overlap commands should use Do and
// hold the handles themselves.

func (c *Conn) Ping(ctx context.Context) (string, error) {
	cmd := protocol.NewCommand(protocol.PING, protocol.NewStatusOutput(), nil)
	return c.status(ctx, cmd)
}

func (c *Conn) Echo(ctx context.Context, message []byte) ([]byte, error) {
	args := protocol.NewArgs().Add(message)
	cmd := protocol.NewCommand(protocol.ECHO, protocol.NewValueOutput(), args)
	return c.value(ctx, cmd)
}

func (c *Conn) Get(ctx context.Context, key string) ([]byte, error) {
	args := protocol.NewArgs().AddString(key)
	cmd := protocol.NewCommand(protocol.GET, protocol.NewValueOutput(), args)
	return c.value(ctx, cmd)
}

func (c *Conn) Set(ctx context.Context, key string, value []byte) (string, error) {
	args := protocol.NewArgs().AddString(key).Add(value)
	cmd := protocol.NewCommand(protocol.SET, protocol.NewStatusOutput(), args)
	return c.status(ctx, cmd)
}

func (c *Conn) Del(ctx context.Context, keys ...string) (int64, error) {
	args := protocol.NewArgs().AddStrings(keys...)
	cmd := protocol.NewCommand(protocol.DEL, protocol.NewIntegerOutput(), args)
	return c.integer(ctx, cmd)
}

func (c *Conn) Exists(ctx context.Context, key string) (bool, error) {
	args := protocol.NewArgs().AddString(key)
	cmd := protocol.NewCommand(protocol.EXISTS, protocol.NewBoolOutput(), args)

	v, err := c.wait(ctx, cmd)
	if err != nil {
		return false, err
	}

	b, _ := v.(bool)
	return b, nil
}

func (c *Conn) Incr(ctx context.Context, key string) (int64, error) {
	args := protocol.NewArgs().AddString(key)
	cmd := protocol.NewCommand(protocol.INCR, protocol.NewIntegerOutput(), args)
	return c.integer(ctx, cmd)
}

func (c *Conn) LPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	return c.push(ctx, protocol.LPUSH, key, values)
}

func (c *Conn) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	return c.push(ctx, protocol.RPUSH, key, values)
}

func (c *Conn) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	args := protocol.NewArgs().AddString(key).AddInt(start).AddInt(stop)
	cmd := protocol.NewCommand(protocol.LRANGE, protocol.NewValueListOutput(), args)

	v, err := c.wait(ctx, cmd)
	if err != nil {
		return nil, err
	}

	values, _ := v.([][]byte)
	return values, nil
}

func (c *Conn) SAdd(ctx context.Context, key string, members ...[]byte) (int64, error) {
	args := protocol.NewArgs().AddString(key)
	for _, m := range members {
		args.Add(m)
	}

	cmd := protocol.NewCommand(protocol.SADD, protocol.NewIntegerOutput(), args)
	return c.integer(ctx, cmd)
}

func (c *Conn) SMembers(ctx context.Context, key string) (map[string]struct{}, error) {
	args := protocol.NewArgs().AddString(key)
	cmd := protocol.NewCommand(protocol.SMEMBERS, protocol.NewValueSetOutput(), args)

	v, err := c.wait(ctx, cmd)
	if err != nil {
		return nil, err
	}

	members, _ := v.(map[string]struct{})
	return members, nil
}

func (c *Conn) HSet(ctx context.Context, key, field string, value []byte) (int64, error) {
	args := protocol.NewArgs().AddString(key).AddString(field).Add(value)
	cmd := protocol.NewCommand(protocol.HSET, protocol.NewIntegerOutput(), args)
	return c.integer(ctx, cmd)
}

func (c *Conn) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	args := protocol.NewArgs().AddString(key)
	cmd := protocol.NewCommand(protocol.HGETALL, protocol.NewMapOutput(), args)

	v, err := c.wait(ctx, cmd)
	if err != nil {
		return nil, err
	}

	fields, _ := v.(map[string][]byte)
	return fields, nil
}

func (c *Conn) Scan(ctx context.Context, cursor string) (protocol.ScanResult, error) {
	args := protocol.NewArgs().AddString(cursor)
	cmd := protocol.NewCommand(protocol.SCAN, protocol.NewScanOutput(), args)

	v, err := c.wait(ctx, cmd)
	if err != nil {
		return protocol.ScanResult{}, err
	}

	result, _ := v.(protocol.ScanResult)
	return result, nil
}

// Command submits an ad-hoc command by name, decoding the reply into plain
// Go values whatever its shape.
func (c *Conn) Command(ctx context.Context, name string, args ...[]byte) (interface{}, error) {
	cmdArgs := protocol.NewArgs()
	for _, a := range args {
		cmdArgs.Add(a)
	}

	cmd := protocol.NewCommand(protocol.CommandType(name), protocol.NewNestedOutput(), cmdArgs)
	return c.wait(ctx, cmd)
}

func (c *Conn) push(ctx context.Context, t protocol.CommandType, key string, values [][]byte) (int64, error) {
	args := protocol.NewArgs().AddString(key)
	for _, v := range values {
		args.Add(v)
	}

	cmd := protocol.NewCommand(t, protocol.NewIntegerOutput(), args)
	return c.integer(ctx, cmd)
}

func (c *Conn) wait(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
	if err := c.dispatcher.Submit(cmd); err != nil {
		return nil, err
	}

	return cmd.Get(ctx)
}

func (c *Conn) status(ctx context.Context, cmd *protocol.Command) (string, error) {
	v, err := c.wait(ctx, cmd)
	if err != nil {
		return "", err
	}

	s, _ := v.(string)
	return s, nil
}

func (c *Conn) value(ctx context.Context, cmd *protocol.Command) ([]byte, error) {
	v, err := c.wait(ctx, cmd)
	if err != nil {
		return nil, err
	}

	b, _ := v.([]byte)
	return b, nil
}

func (c *Conn) integer(ctx context.Context, cmd *protocol.Command) (int64, error) {
	v, err := c.wait(ctx, cmd)
	if err != nil {
		return 0, err
	}

	n, _ := v.(int64)
	return n, nil
}
