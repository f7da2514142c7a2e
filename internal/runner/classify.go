// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/ManuGH/dualentry/internal/contract"
	"github.com/ManuGH/dualentry/internal/observability"
)

const maxDetailLen = 160

// classifyError maps a workflow error onto a reason code and a detail line.
func classifyError(err error) (contract.ReasonCode, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return contract.ReasonCancelled, "Cancelled"
	case errors.Is(err, fs.ErrNotExist):
		return contract.ReasonFileNotFound, sanitizeDetail("File not found: " + err.Error())
	case errors.Is(err, fs.ErrPermission):
		return contract.ReasonPermissionDenied, sanitizeDetail("Permission denied: " + err.Error())
	case isOSError(err):
		return contract.ReasonOSError, sanitizeDetail("OS error: " + err.Error())
	default:
		return contract.ReasonUnexpectedException, sanitizeDetail("Unexpected error: " + err.Error())
	}
}

func isOSError(err error) bool {
	var (
		pathErr *fs.PathError
		linkErr *os.LinkError
		sysErr  *os.SyscallError
		errno   syscall.Errno
	)
	return errors.As(err, &pathErr) || errors.As(err, &linkErr) ||
		errors.As(err, &sysErr) || errors.As(err, &errno)
}

// errorInfo describes err by its innermost type.
func errorInfo(err error) *observability.ErrorInfo {
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	return &observability.ErrorInfo{Type: fmt.Sprintf("%T", root), Message: err.Error()}
}

// panicInfo describes a recovered panic. It must be called from the deferred
// function that recovered it.
func panicInfo(p any) *observability.ErrorInfo {
	info := &observability.ErrorInfo{Type: "panic", Message: fmt.Sprint(p)}
	if err, ok := p.(error); ok {
		info.Type = fmt.Sprintf("%T", err)
		info.Message = err.Error()
	}
	info.Where = panicSite()
	return info
}

// panicSite returns file:line::function of the first non-runtime frame below
// the panic.
func panicSite() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		f, more := frames.Next()
		if isRuntimeFrame(f.Function) {
			if f.Function == "runtime.gopanic" {
				afterPanic = true
			}
		} else if afterPanic {
			return fmt.Sprintf("%s:%d::%s", f.File, f.Line, f.Function)
		}
		if !more {
			return ""
		}
	}
}

func isRuntimeFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") || strings.HasPrefix(fn, "internal/runtime/")
}

func sanitizeDetail(detail string) string {
	if detail == "" {
		return ""
	}
	clean := strings.ReplaceAll(detail, "\n", " ")
	if len(clean) > maxDetailLen {
		cut := maxDetailLen
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		return clean[:cut] + "..."
	}
	return clean
}
