// Command canopy-migrate-lambda runs schema migrations from an AWS Lambda
// invocation, typically a deploy pipeline step. Configuration comes from
// CANOPY_* environment variables; migrations ship inside the function bundle.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/jacentio/canopy/internal/app"
	"github.com/jacentio/canopy/internal/config"
	"github.com/jacentio/canopy/internal/logging"
	"github.com/jacentio/canopy/migrate"
)

// Request selects what an invocation does. An empty Action means "migrate".
type Request struct {
	Action  string `json:"action"`
	Version int64  `json:"version,omitempty"`
}

// Response reports the versions an invocation applied, reverted or found pending.
type Response struct {
	Applied  []string `json:"applied,omitempty"`
	Reverted []string `json:"reverted,omitempty"`
	Pending  []string `json:"pending,omitempty"`
}

// Handler serves migration requests.
type Handler struct {
	migrator *migrate.Migrator
	logger   *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(m *migrate.Migrator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{migrator: m, logger: logger}
}

// Handle runs one request.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	var resp Response
	switch req.Action {
	case "", "migrate":
		done, err := h.migrator.Migrate(ctx)
		resp.Applied = formatVersions(done)
		if err != nil {
			h.logger.Error("migrate failed", zap.Strings("applied", resp.Applied), zap.Error(err))
			return resp, err
		}

	case "up":
		if err := h.migrator.Up(ctx, req.Version); err != nil {
			return resp, err
		}
		resp.Applied = formatVersions([]int64{req.Version})

	case "down":
		if err := h.migrator.Down(ctx, req.Version); err != nil {
			return resp, err
		}
		resp.Reverted = formatVersions([]int64{req.Version})

	case "pending":
		pending, err := h.migrator.Pending(ctx)
		if err != nil {
			return resp, err
		}
		for _, m := range pending {
			resp.Pending = append(resp.Pending, m.String())
		}

	default:
		return resp, fmt.Errorf("unknown action %q", req.Action)
	}
	return resp, nil
}

func formatVersions(vs []int64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = migrate.FormatVersion(v)
	}
	return out
}

func main() {
	cfg, err := config.Load(config.NewViper())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	a, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	lambda.Start(NewHandler(a.Migrator, logger).Handle)
}
