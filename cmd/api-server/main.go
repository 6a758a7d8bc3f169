// Command api-server serves the invoice HTTP API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	invoiceapp "github.com/xenking/order-invoice/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := invoiceapp.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		return invoiceapp.Run(ctx, lg, m, cfg)
	})
}
