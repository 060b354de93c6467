/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/ssgreg/logf"
)

// StringMasker replaces secrets in a string.
type StringMasker interface {
	Mask(s string) string
}

// MaskingLogger masks secrets in messages and string, bytes and error fields.
// Provider credentials may appear in dumped requests or in transport errors that include the URL.
type MaskingLogger struct {
	log    FieldLogger
	masker StringMasker
}

// NewMaskingLogger wraps l so that everything it logs goes through the masker.
func NewMaskingLogger(l FieldLogger, m StringMasker) FieldLogger {
	return MaskingLogger{l, m}
}

func (l MaskingLogger) With(fs ...Field) FieldLogger {
	return MaskingLogger{l.log.With(l.maskFields(fs)...), l.masker}
}

func (l MaskingLogger) Debug(text string, fs ...Field) {
	l.log.Debug(l.masker.Mask(text), l.maskFields(fs)...)
}

func (l MaskingLogger) Info(text string, fs ...Field) {
	l.log.Info(l.masker.Mask(text), l.maskFields(fs)...)
}

func (l MaskingLogger) Warn(text string, fs ...Field) {
	l.log.Warn(l.masker.Mask(text), l.maskFields(fs)...)
}

func (l MaskingLogger) Error(text string, fs ...Field) {
	l.log.Error(l.masker.Mask(text), l.maskFields(fs)...)
}

func (l MaskingLogger) Debugf(format string, args ...interface{}) { l.Debug(fmt.Sprintf(format, args...)) }

func (l MaskingLogger) Infof(format string, args ...interface{}) { l.Info(fmt.Sprintf(format, args...)) }

func (l MaskingLogger) Warnf(format string, args ...interface{}) { l.Warn(fmt.Sprintf(format, args...)) }

func (l MaskingLogger) Errorf(format string, args ...interface{}) { l.Error(fmt.Sprintf(format, args...)) }

func (l MaskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		fn(func(msg string, fs ...Field) {
			logFunc(l.masker.Mask(msg), l.maskFields(fs)...)
		})
	})
}

func (l MaskingLogger) WithLevel(level Level) FieldLogger {
	return MaskingLogger{l.log.WithLevel(level), l.masker}
}

// maskFields returns the original slice when nothing had to be masked.
func (l MaskingLogger) maskFields(fields []Field) []Field {
	var res []Field
	for i := range fields {
		masked, changed := l.maskField(fields[i])
		if !changed {
			continue
		}
		if res == nil {
			res = make([]Field, len(fields))
			copy(res, fields)
		}
		res[i] = masked
	}
	if res == nil {
		return fields
	}
	return res
}

func (l MaskingLogger) maskField(field Field) (Field, bool) {
	switch field.Type {
	case logf.FieldTypeBytesToString:
		// logf keeps string values in the Bytes slot.
		s := *(*string)(unsafe.Pointer(&field.Bytes)) // nolint: gosec
		if masked := l.masker.Mask(s); masked != s {
			return String(field.Key, masked), true
		}
	case logf.FieldTypeBytes, logf.FieldTypeRawBytes:
		if field.Bytes != nil {
			if masked := l.masker.Mask(string(field.Bytes)); masked != string(field.Bytes) {
				return logf.ConstBytes(field.Key, []byte(masked)), true
			}
		}
	case logf.FieldTypeError:
		if err, ok := field.Any.(error); ok && err != nil {
			if masked := l.masker.Mask(err.Error()); masked != err.Error() {
				return NamedError(field.Key, errors.New(masked)), true
			}
		}
	}
	return field, false
}
