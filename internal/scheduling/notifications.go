package scheduling

import (
	"fmt"

	"github.com/agendavel/agendavel-api/internal/notify"
)

// Notification text is user-facing and keeps the platform's original
// Portuguese copy. The timestamp format matches the frontend's display
// convention.
const noticeTimeLayout = "02/01/2006 15:04"

func requestedNotification(appt *Appointment, clientName string) notify.Notification {
	link := fmt.Sprintf("/atendente/solicitacoes/%s", appt.ID)
	return notify.Notification{
		RecipientID:   appt.ProviderID,
		Title:         "Nova Solicitação",
		Message:       fmt.Sprintf("Nova solicitação de agendamento de %s para %s.", clientName, appt.StartsAt.Format(noticeTimeLayout)),
		Kind:          notify.KindAppointmentRequested,
		ReferenceLink: &link,
	}
}

func confirmedNotification(appt *Appointment, providerName string) notify.Notification {
	link := fmt.Sprintf("/cliente/meus-agendamentos/#%s", appt.ID)
	return notify.Notification{
		RecipientID:   appt.ClientID,
		Title:         "Agendamento Confirmado!",
		Message:       fmt.Sprintf("Seu agendamento com %s para %s foi CONFIRMADO.", providerName, appt.StartsAt.Format(noticeTimeLayout)),
		Kind:          notify.KindAppointmentConfirmed,
		ReferenceLink: &link,
	}
}

func refusedNotification(appt *Appointment, providerName, reason string) notify.Notification {
	link := "/cliente/meus-agendamentos/"
	return notify.Notification{
		RecipientID:   appt.ClientID,
		Title:         "Solicitação Recusada",
		Message:       fmt.Sprintf("Sua solicitação de agendamento com %s para %s foi recusada. Motivo: %s", providerName, appt.StartsAt.Format(noticeTimeLayout), reason),
		Kind:          notify.KindAppointmentCancelled,
		ReferenceLink: &link,
	}
}

func completedNotification(appt *Appointment) notify.Notification {
	link := fmt.Sprintf("/cliente/meus-agendamentos/#%s", appt.ID)
	return notify.Notification{
		RecipientID:   appt.ClientID,
		Title:         "Agendamento Realizado",
		Message:       fmt.Sprintf("O agendamento de %s foi registrado como realizado. Você já pode avaliá-lo.", appt.StartsAt.Format(noticeTimeLayout)),
		Kind:          notify.KindAppointmentCompleted,
		ReferenceLink: &link,
	}
}

func clientCancelledNotification(appt *Appointment, clientName string) notify.Notification {
	link := "/atendente/minha-agenda/"
	return notify.Notification{
		RecipientID:   appt.ProviderID,
		Title:         "Agendamento Cancelado",
		Message:       fmt.Sprintf("O agendamento com %s para %s foi CANCELADO pelo cliente.", clientName, appt.StartsAt.Format(noticeTimeLayout)),
		Kind:          notify.KindAppointmentCancelled,
		ReferenceLink: &link,
	}
}

// adminCancelledNotifications addresses both parties.
func adminCancelledNotifications(appt *Appointment, reason string) []notify.Notification {
	msg := fmt.Sprintf("O agendamento para %s foi cancelado pelo administrador. Motivo: %s", appt.StartsAt.Format(noticeTimeLayout), reason)
	return []notify.Notification{
		{
			RecipientID: appt.ClientID,
			Title:       "Agendamento Cancelado",
			Message:     msg,
			Kind:        notify.KindAppointmentCancelledAdmin,
		},
		{
			RecipientID: appt.ProviderID,
			Title:       "Agendamento Cancelado",
			Message:     msg,
			Kind:        notify.KindAppointmentCancelledAdmin,
		},
	}
}

func noShowNotifications(appt *Appointment) []notify.Notification {
	msg := fmt.Sprintf("O agendamento de %s foi registrado como não comparecido.", appt.StartsAt.Format(noticeTimeLayout))
	return []notify.Notification{
		{
			RecipientID: appt.ClientID,
			Title:       "Não Comparecimento Registrado",
			Message:     msg,
			Kind:        notify.KindAppointmentNoShow,
		},
		{
			RecipientID: appt.ProviderID,
			Title:       "Não Comparecimento Registrado",
			Message:     msg,
			Kind:        notify.KindAppointmentNoShow,
		},
	}
}

func singleNotification(n notify.Notification) []notify.Notification {
	return []notify.Notification{n}
}
