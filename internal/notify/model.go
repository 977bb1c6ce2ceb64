package notify

import (
	"time"

	"github.com/google/uuid"
)

// Kind values are persisted and consumed by the frontend; they keep the
// platform's original wire spelling.
const (
	KindAppointmentRequested      = "NOVO_AGENDAMENTO_SOLICITADO"
	KindAppointmentConfirmed      = "AGENDAMENTO_CONFIRMADO"
	KindAppointmentCompleted      = "AGENDAMENTO_REALIZADO"
	KindAppointmentCancelled      = "AGENDAMENTO_CANCELADO"
	KindAppointmentCancelledAdmin = "AGENDAMENTO_CANCELADO_ADMIN"
	KindAppointmentNoShow         = "AGENDAMENTO_NAO_COMPARECIDO"
	KindProviderApproved          = "ATENDENTE_CADASTRO_APROVADO"
	KindProviderRejected          = "ATENDENTE_CADASTRO_REPROVADO"
)

// Notification is a row in the delivery sink. Writing one is always part of
// the transaction that triggered it; delivery mechanics live elsewhere.
type Notification struct {
	ID            uuid.UUID
	RecipientID   uuid.UUID
	Title         string
	Message       string
	Kind          string
	ReferenceLink *string
	ReadAt        *time.Time
	CreatedAt     time.Time
}
