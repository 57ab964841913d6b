package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// uniqueViolationCode はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolationCode = "23505"

// IsUniqueViolation はエラーが一意制約違反かどうかを判定する。
// ラップされたエラーも判定対象とする。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}

// nullString は空文字列をNULLとして書き込むための変換を行う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullStringPtr は部分更新用の変換を行う。ptrがnilでないことを前提とする。
func nullStringPtr(ptr *string) sql.NullString {
	return nullString(*ptr)
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}
