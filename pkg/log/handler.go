package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// ErrorTypeAttrKey は根本原因のエラー型名を載せる属性キー
const ErrorTypeAttrKey = "error_type"

// ErrorDetailHandler は error 属性を持つレコードに cockroachdb/errors のスタックと
// 根本原因の型名を付け足す slog.Handler。
//
// 呼び出し側が StacktraceAttrKey を明示した場合はそちらを優先し、重複させない。
// With(ErrAttr(err)) で束縛されたエラーも対象になる。
type ErrorDetailHandler struct {
	next     slog.Handler
	boundErr error
}

// WrapWithErrorDetail wraps next with an ErrorDetailHandler.
func WrapWithErrorDetail(next slog.Handler) slog.Handler {
	return &ErrorDetailHandler{next: next}
}

func (h *ErrorDetailHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *ErrorDetailHandler) Handle(ctx context.Context, r slog.Record) error {
	err, hasStack := h.boundErr, false
	r.Attrs(func(attr slog.Attr) bool {
		switch attr.Key {
		case ErrAttrKey:
			if e, ok := attr.Value.Any().(error); ok {
				err = e
			}
		case StacktraceAttrKey:
			hasStack = true
		}
		return true
	})
	if err == nil {
		return h.next.Handle(ctx, r)
	}

	r = r.Clone()
	r.AddAttrs(slog.String(ErrorTypeAttrKey, errorTypeName(err)))
	if !hasStack {
		if stack := extractStacktrace(err); stack != "" {
			r.AddAttrs(slog.String(StacktraceAttrKey, stack))
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ErrorDetailHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.boundErr
	for _, a := range attrs {
		if a.Key != ErrAttrKey {
			continue
		}
		if e, ok := a.Value.Any().(error); ok {
			bound = e
		}
	}
	return &ErrorDetailHandler{next: h.next.WithAttrs(attrs), boundErr: bound}
}

func (h *ErrorDetailHandler) WithGroup(g string) slog.Handler {
	return &ErrorDetailHandler{next: h.next.WithGroup(g), boundErr: h.boundErr}
}

// extractStacktrace returns the first safe detail of err, which for errors built
// with errors.WithStack is the formatted stack.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// errorTypeName は包みを剥がした根本原因の型名
func errorTypeName(err error) string {
	return fmt.Sprintf("%T", errors.UnwrapAll(err))
}
