package ledger

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
)

// Factory builds a Ledger from a configuration map.
type Factory func(context.Context, map[string]interface{}) (chainblob.Ledger, error)

var registry = make(map[string]Factory)

// Register makes a Factory available to Create under the given key.
// Backend packages call it from init.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create builds the Ledger registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (chainblob.Ledger, error) {
	f, ok := registry[key]
	if !ok {
		return nil, errors.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// Keys lists the registered keys, in no particular order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	return keys
}

// ConfString gets a string value from a configuration map.
func ConfString(conf map[string]interface{}, key string) (string, bool) {
	v, ok := conf[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ConfLedger builds a nested Ledger from a configuration map.
// The nested map must name its backend under "type".
// Decorator backends use this to wrap another ledger.
func ConfLedger(ctx context.Context, conf map[string]interface{}, key string) (chainblob.Ledger, error) {
	v, ok := conf[key]
	if !ok {
		return nil, errors.Errorf("missing %s", key)
	}
	nested, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("%s is not a map", key)
	}
	typ, ok := ConfString(nested, "type")
	if !ok {
		return nil, errors.Errorf("%s missing type", key)
	}
	return Create(ctx, typ, nested)
}
