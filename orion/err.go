package orion

import (
	"fmt"
	"log/slog"
)

// Handle panics with a descriptive message if err is not nil.
func Handle(err error, desc string, args ...any) {
	if err != nil {
		text := fmt.Sprintf(desc, args...)
		slog.Error(text, slog.String("err", err.Error()))
		panic(fmt.Errorf("%s: %w", text, err))
	}
}
