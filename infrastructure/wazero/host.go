package wazero

import (
	"context"
	"encoding/json"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/internal/abi"
	portlog "github.com/Bind-Forward/port/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// registerHostModule exports log_message so guests can write to the host
// logger. The payload is a JSON log record: level, message and optional
// attrs.
func registerHostModule(ctx context.Context, rt wazero.Runtime, cfg config) error {
	logger := cfg.logger
	limit := cfg.maxResponseSize

	_, err := rt.NewHostModuleBuilder(cfg.hostModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			payload, err := abi.ReadBytes(mod, stack[0], limit)
			if err != nil {
				logger.ErrorContext(ctx, "wazero: failed to read log record", "error", err)
				return
			}

			var rec entities.LogRecord
			if err := json.Unmarshal(payload, &rec); err != nil {
				rec = entities.LogRecord{Level: "INFO", Message: string(payload)}
			}
			portlog.Replay(ctx, logger, "wasm", rec)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export("log_message").
		Instantiate(ctx)
	return err
}
