package r66

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/openr66/r66/internal/sync"
)

// BusinessExecutor runs the actions carried by BusinessRequest packets.
type BusinessExecutor interface {
	Execute(ctx context.Context, hostID, action string) (string, error)
}

// BusinessFunc handles one named business action.
// args holds the whitespace separated words following the action name.
type BusinessFunc func(ctx context.Context, hostID string, args []string) (string, error)

// BusinessMux dispatches a business action on its first word.
type BusinessMux struct {
	mu       sync.RWMutex
	handlers map[string]BusinessFunc
}

// NewBusinessMux returns a BusinessMux with the built-in actions registered:
//
//	echo <words>   returns its arguments
//	time           returns the server clock in RFC 3339
//	actions        lists the registered actions
func NewBusinessMux() *BusinessMux {
	m := &BusinessMux{
		handlers: make(map[string]BusinessFunc),
	}

	m.Handle("echo", func(_ context.Context, _ string, args []string) (string, error) {
		return strings.Join(args, " "), nil
	})
	m.Handle("time", func(context.Context, string, []string) (string, error) {
		return time.Now().UTC().Format(time.RFC3339), nil
	})
	m.Handle("actions", func(context.Context, string, []string) (string, error) {
		return strings.Join(m.Actions(), " "), nil
	})

	return m
}

// Handle registers fn under name, replacing any previous handler.
func (m *BusinessMux) Handle(name string, fn BusinessFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[name] = fn
}

// Actions returns the sorted names of the registered actions.
func (m *BusinessMux) Actions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Execute implements BusinessExecutor.
func (m *BusinessMux) Execute(ctx context.Context, hostID, action string) (string, error) {
	words := strings.Fields(action)
	if len(words) == 0 {
		return "", errors.Wrap(ErrUnknownBusinessAction, "empty action")
	}

	m.mu.RLock()
	fn, ok := m.handlers[words[0]]
	m.mu.RUnlock()

	if !ok {
		return "", errors.Wrapf(ErrUnknownBusinessAction, "%q", words[0])
	}

	return fn(ctx, hostID, words[1:])
}
