package settings

import (
	"context"
	"encoding/json"
	"fmt"
)

const DefaultRedisKey = "settings"

// HashClient is the subset of the redis wrapper used for settings.
type HashClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// RedisStore keeps settings as a redis hash keyed by the JSON field names.
type RedisStore struct {
	client HashClient
	key    string
}

func NewRedisStore(client HashClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) Load(ctx context.Context) (Settings, error) {
	s := Defaults()
	fields, err := r.client.HGetAll(ctx, r.key)
	if err != nil {
		return s, fmt.Errorf("failed to load settings: %w", err)
	}
	if len(fields) == 0 {
		return s, nil
	}

	// 哈希值都是字符串，能按 JSON 解析的按原类型，其余按字符串处理
	obj := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if json.Valid([]byte(v)) {
			obj[k] = json.RawMessage(v)
			continue
		}
		quoted, _ := json.Marshal(v)
		obj[k] = quoted
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Defaults(), fmt.Errorf("invalid settings in %s: %w", r.key, err)
	}
	return s.Sanitize(), nil
}

func (r *RedisStore) Save(ctx context.Context, s Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}

	values := make([]interface{}, 0, len(obj)*2)
	for k, v := range obj {
		if str, ok := v.(string); ok {
			values = append(values, k, str)
			continue
		}
		encoded, _ := json.Marshal(v)
		values = append(values, k, string(encoded))
	}
	return r.client.HSet(ctx, r.key, values...)
}
