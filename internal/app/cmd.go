package app

import "strconv"

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は定期クリーンアップを行うワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandCleanup は期限切れデータのクリーンアップを1回だけ実行することを示す。
	CommandCleanup Command = "cleanup"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandRollback はマイグレーションを巻き戻すことを示す。
	CommandRollback Command = "rollback"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch cmd := Command(args[0]); cmd {
	case CommandServe, CommandWorker, CommandCleanup, CommandMigrate, CommandRollback, CommandHealthcheck:
		return cmd
	default:
		return CommandServe
	}
}

// ParseSteps はrollbackサブコマンドの巻き戻し件数を解析する。
// 指定がない場合や正の整数でない場合は1を返す。
func ParseSteps(args []string) int {
	if len(args) < 2 {
		return 1
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
