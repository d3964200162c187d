// services/config/config.go
//
// Embedded per-board defaults. The service parses the board's JSON blob
// and publishes each top-level section as a retained message, so any
// service can pick up its section whenever it subscribes. Mains also read
// the blob directly to seed engine options before the loop starts.
package config

import (
	"context"
	"errors"

	"github.com/andreyvit/tinyjson"

	"mycobrain-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxBoardKey  = "board" // context key carrying the board name
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Parse decodes one config blob into a section map.
func Parse(raw []byte) (map[string]any, error) {
	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()
	m, ok := val.(map[string]any)
	if !ok {
		return nil, errors.New("config is not a JSON object")
	}
	return m, nil
}

// Load resolves and parses the embedded config for a board.
func Load(board string) (map[string]any, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return nil, errors.New("no embedded config for board: " + board)
	}
	return Parse(raw)
}

// Section returns a nested object section, or nil when absent.
func Section(m map[string]any, key string) map[string]any {
	sub, _ := m[key].(map[string]any)
	return sub
}

// Int reads a numeric field tolerating the decoder's number types.
func Int(m map[string]any, key string, def int64) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return def
}

func Bool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func Str(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

type Service struct {
	Name string
}

func NewService() *Service {
	return &Service{Name: serviceName}
}

// publishConfig publishes each top-level section retained under
// {"config", section}.
func (s *Service) publishConfig(ctx context.Context, conn *bus.Connection) error {
	board, _ := ctx.Value(CtxBoardKey).(string)
	if board == "" {
		return errors.New("missing board name in context")
	}
	m, err := Load(board)
	if err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		_ = s.publishConfig(ctx, conn)
	}()
}
