// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ユーザーが送るテキスト（レシピのタイトル・手順、プロフィールのbio）はプレーンテキストとして
// そのまま保存・返却する。書き換えは行わない。
// ここで扱うのは、フロントエンドが<img src>としてそのまま描画するプロフィール画像URLの検証のみ。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// URLPolicy は外部から受け取ったURLを許可するか判定するインターフェース。
type URLPolicy interface {
	// Allowed はrawがポリシー上許可されたURLならtrueを返す。入力は変更しない。
	Allowed(raw string) bool
}

// imageURLPolicy はURLPolicyの実装。
// bluemondayのポリシーはスレッドセーフであり、複数goroutineから共有できる。
type imageURLPolicy struct {
	policy *bluemonday.Policy
}

// NewImageURLPolicy は画像URL用のURLPolicyを生成する。
// 許可するのはhttpとhttpsの絶対URLのみ。javascript:やdata:、相対URLは拒否する。
func NewImageURLPolicy() *imageURLPolicy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("src").OnElements("img")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)

	return &imageURLPolicy{policy: p}
}

// Allowed はrawを<img src>に置いたとき、ポリシーがsrc属性を残すかどうかで判定する。
func (p *imageURLPolicy) Allowed(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	out := p.policy.Sanitize(`<img src="` + html.EscapeString(raw) + `">`)
	return strings.Contains(out, "src=")
}
