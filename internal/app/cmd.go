package app

import (
	"slices"
	"strings"
)

// Command はrecipebookバイナリのサブコマンドを表す。
type Command string

const (
	// CommandServe はレシピAPIサーバーを起動する（既定）。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの定期削除だけを行う。
	CommandWorker Command = "worker"
	// CommandMigrate はusers/recipes/sessionsスキーマを最新にして終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は/healthを叩いて終了コードで結果を返す。distrolessイメージ用。
	CommandHealthcheck Command = "healthcheck"
)

var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 引数なしや未知のサブコマンドはCommandServeとみなす。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd := Command(args[0]); slices.Contains(commands, cmd) {
		return cmd
	}
	return CommandServe
}

// Usage はサポートするサブコマンドの一覧を返す。
func Usage() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return "usage: recipebook [" + strings.Join(names, "|") + "]"
}
