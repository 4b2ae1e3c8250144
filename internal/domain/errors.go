package domain

import (
	"errors"
	"fmt"
	"time"
)

// Errores esperados del core. La capa de presentación los formatea;
// acá solo cargamos el contexto necesario para el mensaje.
var (
	ErrNotFound        = errors.New("not found")
	ErrWrongOwner      = errors.New("window belongs to another user")
	ErrInvalidRange    = errors.New("end must be after start")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyEnded    = errors.New("window already ended")
	ErrNotFuture       = errors.New("window is not strictly in the future")
	ErrAlreadyMember   = errors.New("already an active member of this clan")
	ErrNotMember       = errors.New("no active membership in this clan")
)

// InvalidFormatError: input de fecha/hora mal formado. Se muestra tal cual.
type InvalidFormatError struct {
	Input string
	Hint  string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid format %q: %s", e.Input, e.Hint)
}

// PastDateError: la fecha cae en el pasado reciente (≤14 días) — casi seguro typo.
type PastDateError struct {
	Instant time.Time
}

func (e *PastDateError) Error() string {
	return fmt.Sprintf("start %s is in the past", e.Instant.Format(time.RFC3339))
}

// OverlapError: la ventana nueva pisa una existente. Lleva la ventana en
// conflicto para que el comando pueda mostrar rangos y motivo.
type OverlapError struct {
	Existing AFKWindow
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlaps existing AFK window [%s, %s] (%s)",
		e.Existing.StartDate.Format(time.RFC3339),
		e.Existing.EndDate.Format(time.RFC3339),
		e.Existing.Reason)
}
