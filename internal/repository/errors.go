package repository

import (
	"errors"
	"learning_progress_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateKey 兼容未开启 TranslateError 的驱动
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

// mapNotFound 将 gorm 的记录不存在错误转换为业务错误
func mapNotFound(op string, err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.NewNotFoundError(op, format, args...)
	}
	return util.NewInternalError(op, err)
}
