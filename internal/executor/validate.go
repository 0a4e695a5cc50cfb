package executor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"curator/internal/services"
	"curator/internal/suggest"
)

const component = "executor"

// validateOperation checks an operation without touching the
// filesystem state it would change. Sources must exist as accessible
// regular files; non-delete targets must be absent unless Force and
// their directory writable.
func validateOperation(op suggest.FileOperation) error {
	if _, ok := suggest.ParseOperationType(string(op.Type)); !ok {
		return services.Wrap(services.ErrContract, component, "validate",
			fmt.Sprintf("unknown operation type %q", op.Type), nil)
	}

	source := strings.TrimSpace(op.SourcePath)
	if source == "" {
		return services.Wrap(services.ErrValidation, component, "validate", "source path is required", nil)
	}
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrValidation, component, "validate",
				fmt.Sprintf("source %s does not exist", source), err)
		}
		return services.Wrap(services.ErrValidation, component, "validate",
			fmt.Sprintf("source %s is not accessible", source), err)
	}
	if !info.Mode().IsRegular() {
		return services.Wrap(services.ErrValidation, component, "validate",
			fmt.Sprintf("source %s is not a regular file", source), nil)
	}
	if err := unix.Access(source, unix.R_OK|unix.W_OK); err != nil {
		return services.Wrap(services.ErrValidation, component, "validate",
			fmt.Sprintf("source %s is not read/write accessible", source), err)
	}

	if op.Type == suggest.OperationDelete {
		return nil
	}

	target := strings.TrimSpace(op.TargetPath)
	if target == "" {
		return services.Wrap(services.ErrContract, component, "validate",
			fmt.Sprintf("%s operation requires a target path", op.Type), nil)
	}
	if target == source {
		return services.Wrap(services.ErrValidation, component, "validate",
			fmt.Sprintf("source and target are the same path %s", source), nil)
	}
	if _, err := os.Stat(target); err == nil {
		if !op.Force {
			return services.Wrap(services.ErrValidation, component, "validate",
				fmt.Sprintf("target %s already exists", target), nil)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrValidation, component, "validate",
			fmt.Sprintf("target %s is not accessible", target), err)
	}

	dir := nearestExistingDir(filepath.Dir(target))
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return services.Wrap(services.ErrValidation, component, "validate",
			fmt.Sprintf("target directory %s is not writable", dir), err)
	}
	return nil
}

// nearestExistingDir walks up from dir to the closest ancestor that
// exists, so writability can be checked before any directories are
// created.
func nearestExistingDir(dir string) string {
	for {
		if dir == "" {
			return string(filepath.Separator)
		}
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
