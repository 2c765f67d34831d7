package errors

import (
	stderrors "errors"
	"fmt"
)

// Error kinds shared by every moderation and blacklist operation. Handlers
// match them with errors.Is and turn them into ephemeral replies.
var (
	ErrUnauthorized    = stderrors.New("usuario no autorizado")
	ErrNotFound        = stderrors.New("no encontrado")
	ErrStateConflict   = stderrors.New("la solicitud ya fue resuelta")
	ErrExternalService = stderrors.New("servicio externo no disponible")
	ErrForbidden       = stderrors.New("permisos insuficientes")
)

// Unauthorized marks an actor that failed the whitelist gate.
func Unauthorized(userID string) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, userID)
}

// NotFound marks a missing user, entry, channel or folder.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Conflict marks an operation on an already resolved submission.
func Conflict(id, status string) error {
	return fmt.Errorf("%w: %s (%s)", ErrStateConflict, id, status)
}

// External wraps a failed call to the platform, the store or the storage
// backend. Both the kind and the cause stay reachable through errors.Is.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsKind(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrExternalService, op, err)
}

// Forbidden marks a platform call rejected for missing bot permissions.
func Forbidden(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrForbidden, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrForbidden, op, err)
}

// IsKind reports whether err already carries one of the taxonomy sentinels.
func IsKind(err error) bool {
	for _, kind := range []error{ErrUnauthorized, ErrNotFound, ErrStateConflict, ErrExternalService, ErrForbidden} {
		if stderrors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Retryable reports whether an operation failing with err may be attempted again.
// Permission and lookup failures never are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrForbidden) || stderrors.Is(err, ErrNotFound) || stderrors.Is(err, ErrUnauthorized) || stderrors.Is(err, ErrStateConflict) {
		return false
	}
	return stderrors.Is(err, ErrExternalService)
}

// UserMessage converts err into the text shown to the user who triggered the interaction.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, ErrUnauthorized):
		return "❌ No tienes permiso para usar este comando."
	case stderrors.Is(err, ErrStateConflict):
		return "⚠️ Esta solicitud ya fue resuelta."
	case stderrors.Is(err, ErrNotFound):
		return fmt.Sprintf("❌ No encontrado: %s", err.Error())
	case stderrors.Is(err, ErrForbidden):
		return "❌ No tengo permisos suficientes para realizar esta acción. Revisa los permisos de mi rol."
	case stderrors.Is(err, ErrExternalService):
		return fmt.Sprintf("❌ Ocurrió un error con un servicio externo: %s", err.Error())
	default:
		return fmt.Sprintf("❌ Ocurrió un error inesperado: %s", err.Error())
	}
}

// Is and As forward to the standard library so callers importing this
// package need no second errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
