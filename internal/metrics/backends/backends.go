// Package backends selects and installs a metrics backend into the metrics
// facade from configuration. Binaries call Configure once at startup and
// defer metrics.Close.
package backends

import (
	"context"
	"fmt"
	"time"

	"github.com/Smart-Speaker/sf-data-service/internal/metrics"
	"github.com/Smart-Speaker/sf-data-service/internal/metrics/datadog"
)

// Configure installs the backend named by kind. Empty and "none" keep the
// nop default. An unknown kind is an error; callers decide whether to treat
// it as fatal or run without metrics.
func Configure(ctx context.Context, kind, tagsCSV string) error {
	switch kind {
	case "", "none":
		return nil
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    "pricebook-export",
			Tags:       datadog.ParseTagsCSV(tagsCSV),
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("init datadog backend: %w", err)
		}
		metrics.SetBackend(b)
		return nil
	default:
		return fmt.Errorf("unknown metrics backend %q", kind)
	}
}
