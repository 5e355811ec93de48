// Package domain はcompanyフィーチャーのドメインエラーを定義します。
package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrCompanyNotFound は指定された識別子の企業が存在しないことを示します。
	ErrCompanyNotFound = errors.New("company not found")

	// ErrDuplicateISIN は同じISINを持つ企業が既に存在することを示します。
	// ストアのユニーク制約違反もこのエラーに変換されます。
	ErrDuplicateISIN = errors.New("company with this isin already exists")
)

// ConflictError はISINの重複を表し、重複した値を保持します。
type ConflictError struct {
	ISIN string
}

func (e *ConflictError) Error() string {
	return ErrDuplicateISIN.Error() + ": " + e.ISIN
}

// Unwrap により errors.Is(err, ErrDuplicateISIN) が成立します。
func (e *ConflictError) Unwrap() error {
	return ErrDuplicateISIN
}

// ValidationError は1つ以上のフィールドがルールに違反したことを表します。
// Fields はフィールド名（JSON名）からメッセージへのマッピングです。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
