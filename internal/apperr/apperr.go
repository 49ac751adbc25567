package apperr

import "github.com/pkg/errors"

// Бизнес-ошибки жизненного цикла. Проверяются через errors.Is, поэтому
// оборачивать можно как угодно (pkg/errors сохраняет цепочку).
var (
	// ErrValidation — обязательные поля отсутствуют или некорректны.
	ErrValidation = errors.New("validation failed")
	// ErrPermissionDenied — роль актора не разрешает операцию.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidTransition — операция не определена для текущего статуса.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflictLost — условный апдейт не применился: статус уже изменил
	// другой актор (проигранная гонка за accept).
	ErrConflictLost = errors.New("conflict: load already taken")
	// ErrNotFound — записи нет.
	ErrNotFound = errors.New("not found")
)

func Validationf(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}
