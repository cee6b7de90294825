package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/articleforge-backend/internal/platform/gcp"
)

type BootstrapStage string

const (
	BootstrapStageConfig        BootstrapStage = "config"
	BootstrapStageLogger        BootstrapStage = "logger"
	BootstrapStageTheme         BootstrapStage = "theme"
	BootstrapStageArtifactStore BootstrapStage = "artifact_store"
	BootstrapStageRegistry      BootstrapStage = "registry"
)

type BootstrapErrorCode string

const (
	BootstrapErrorInvalidConfig        BootstrapErrorCode = "invalid_config"
	BootstrapErrorInvalidMode          BootstrapErrorCode = "invalid_mode"
	BootstrapErrorMissingEmulatorHost  BootstrapErrorCode = "missing_emulator_host"
	BootstrapErrorInvalidEmulatorHost  BootstrapErrorCode = "invalid_emulator_host"
	BootstrapErrorMissingBucket        BootstrapErrorCode = "missing_bucket"
	BootstrapErrorInvalidPublicBaseURL BootstrapErrorCode = "invalid_public_base_url"
	BootstrapErrorConnectFailed        BootstrapErrorCode = "connect_failed"
)

// BootstrapError reports which stage of app.New failed and why.
type BootstrapError struct {
	Stage BootstrapStage
	Code  BootstrapErrorCode
	Mode  string
	Cause error
}

func (e *BootstrapError) Error() string {
	if e == nil {
		return "bootstrap failed"
	}
	if e.Mode != "" {
		return fmt.Sprintf("bootstrap failed (stage=%s code=%s mode=%q): %v", e.Stage, e.Code, e.Mode, e.Cause)
	}
	return fmt.Sprintf("bootstrap failed (stage=%s code=%s): %v", e.Stage, e.Code, e.Cause)
}

func (e *BootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// classifyObjectStorageError maps object storage config errors to
// bootstrap codes. Anything else is treated as a connection failure.
func classifyObjectStorageError(mode string, err error) *BootstrapError {
	out := &BootstrapError{Stage: BootstrapStageArtifactStore, Code: BootstrapErrorConnectFailed, Mode: mode, Cause: err}
	var cfgErr *gcp.ObjectStorageConfigError
	if !errors.As(err, &cfgErr) {
		return out
	}
	switch cfgErr.Code {
	case gcp.ObjectStorageConfigErrorInvalidMode:
		out.Code = BootstrapErrorInvalidMode
	case gcp.ObjectStorageConfigErrorMissingEmulatorHost:
		out.Code = BootstrapErrorMissingEmulatorHost
	case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
		out.Code = BootstrapErrorInvalidEmulatorHost
	case gcp.ObjectStorageConfigErrorMissingBucket:
		out.Code = BootstrapErrorMissingBucket
	case gcp.ObjectStorageConfigErrorInvalidPublicBaseURL:
		out.Code = BootstrapErrorInvalidPublicBaseURL
	}
	return out
}
