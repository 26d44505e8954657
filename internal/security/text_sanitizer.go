// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はフィードバック本文からマークアップを除去し、
// UIでの表示時にスクリプト混入などのリスクが生じないようにする。
// bluemondayのStrictPolicyを使用し、HTMLタグを一切許可しない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// フィードバック本文の保存前に使用される。
type TextSanitizerService interface {
	// Sanitize はテキストからHTMLタグを除去して返す。
	// プレーンテキストはそのまま通過する。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去し、テキストのみを残す。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストからHTMLタグを除去して返す。
// StrictPolicyはエンティティをエスケープするため、
// プレーンテキストが変化しないようアンエスケープして戻す。
func (s *textSanitizer) Sanitize(raw string) string {
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
