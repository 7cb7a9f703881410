package log

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mwantia/fabric/pkg/container"
)

// TagProcessor is the contract the service container consults when it
// resolves a struct field carrying a fabric tag. Registering an
// implementation makes the container offer matching tag values to it,
// in descending priority order.
type TagProcessor interface {
	GetPriority() int
	CanProcess(value string) bool
	Process(ctx context.Context, sc *container.ServiceContainer, field reflect.StructField, value string) (any, error)
}

// LoggerTagProcessor resolves `fabric:"logger"` and
// `fabric:"logger:<name>"` fields to the registered LoggerService,
// deriving a named child logger when the tag carries a name. Matching
// is case-insensitive.
type LoggerTagProcessor struct{}

func NewLoggerTagProcessor() *LoggerTagProcessor {
	return &LoggerTagProcessor{}
}

// Priority 50 places it ahead of the default inject processor
// (priority 0).
func (ltp *LoggerTagProcessor) GetPriority() int {
	return 50
}

func (ltp *LoggerTagProcessor) CanProcess(value string) bool {
	return strings.EqualFold(value, "logger") || strings.HasPrefix(strings.ToLower(value), "logger:")
}

func (ltp *LoggerTagProcessor) Process(ctx context.Context, sc *container.ServiceContainer, field reflect.StructField, value string) (any, error) {
	ok, resolved := sc.ResolveByType(ctx, reflect.TypeOf((*LoggerService)(nil)).Elem())
	if !ok {
		return nil, fmt.Errorf("failed to resolve LoggerService for field '%s': no logger service registered", field.Name)
	}

	base, ok := resolved.(LoggerService)
	if !ok {
		return nil, fmt.Errorf("resolved logger is not a LoggerService for field '%s'", field.Name)
	}

	name := ""
	if _, after, found := strings.Cut(value, ":"); found {
		name = strings.TrimSpace(after)
	}

	if name != "" {
		return base.Named(name), nil
	}
	return base, nil
}
