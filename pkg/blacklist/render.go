package blacklist

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/PancyStudios/PancyGuard/pkg/storage"
	"github.com/bwmarrin/discordgo"
)

// Component custom ID prefixes. The part after ':' is the submission ID, or
// the evidence folder ID for the image viewer.
const (
	ApprovePrefix     = "approve_blacklist"
	RejectPrefix      = "reject_blacklist"
	RejectModalPrefix = "reject_blacklist_modal"
	ViewImagesPrefix  = "view_images_direct"

	RejectionReasonField = "rejection_reason"
)

const footerText = "Sistema de Blacklist"

// CustomID joins a prefix and an ID
func CustomID(prefix, id string) string {
	return prefix + ":" + id
}

// ParseCustomID splits a custom ID built with CustomID
func ParseCustomID(customID string) (prefix, id string) {
	prefix, id, _ = strings.Cut(customID, ":")
	return prefix, id
}

func viewImagesRow(proofLink, folderID string, disabled bool) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: "Ver imágenes", Style: discordgo.LinkButton, URL: proofLink},
		discordgo.Button{
			Label:    "Ver imágenes directo",
			Style:    discordgo.SecondaryButton,
			CustomID: CustomID(ViewImagesPrefix, folderID),
			Disabled: disabled,
		},
	}}
}

func requestFields(sub *models.Submission) []*discordgo.MessageEmbedField {
	fields := []*discordgo.MessageEmbedField{
		{Name: "ID de usuario", Value: sub.UserID, Inline: true},
		{Name: "Razón", Value: sub.Reason},
		{Name: "Solicitado por", Value: fmt.Sprintf("<@%s>", sub.RequestedBy), Inline: true},
		{Name: "Pruebas", Value: sub.ProofLink},
		{Name: "MSN", Value: strconv.FormatBool(sub.MSN), Inline: true},
	}
	if len(sub.Aliases) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Alias", Value: strings.Join(sub.Aliases, ",")})
	}
	return fields
}

// RequestMessage renders the approval request posted to the approval channel
func RequestMessage(sub *models.Submission) *platform.Message {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Solicitud de blacklist para %s", sub.Username),
		Description: "Esta solicitud de blacklist requiere aprobación.",
		Color:       0xF1C40F,
		Fields:      requestFields(sub),
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%s | %s", footerText, sub.ID)},
		Timestamp:   sub.CreatedAt.Format(time.RFC3339),
	}
	return &platform.Message{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			viewImagesRow(sub.ProofLink, sub.FolderID, false),
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Aprobar", Style: discordgo.SuccessButton, CustomID: CustomID(ApprovePrefix, sub.ID)},
				discordgo.Button{Label: "Rechazar", Style: discordgo.DangerButton, CustomID: CustomID(RejectPrefix, sub.ID)},
			}},
		},
	}
}

// ResolvedMessage renders the approval request after a decision, with the
// decision buttons disabled.
func ResolvedMessage(sub *models.Submission, resolverName string) *platform.Message {
	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Solicitud de blacklist para %s", sub.Username),
		Fields:    requestFields(sub),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%s | %s", footerText, sub.ID)},
		Timestamp: sub.ResolvedAt.Format(time.RFC3339),
	}
	resolver := fmt.Sprintf("%s (%s)", resolverName, sub.ResolvedBy)
	switch sub.Status {
	case models.StatusApproved:
		embed.Description = "✅ Esta solicitud de blacklist ha sido aprobada."
		embed.Color = 0x2ECC71
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Aprobado por", Value: resolver})
	case models.StatusRejected:
		embed.Description = "❌ Esta solicitud de blacklist ha sido rechazada."
		embed.Color = 0xE74C3C
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Rechazado por", Value: resolver},
			&discordgo.MessageEmbedField{Name: "Motivo del rechazo", Value: sub.RejectionReason},
		)
	}

	return &platform.Message{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			viewImagesRow(sub.ProofLink, sub.FolderID, true),
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Aprobar", Style: discordgo.SuccessButton, CustomID: CustomID(ApprovePrefix, sub.ID), Disabled: true},
				discordgo.Button{Label: "Rechazar", Style: discordgo.DangerButton, CustomID: CustomID(RejectPrefix, sub.ID), Disabled: true},
			}},
		},
	}
}

// EntryEmbed renders one blacklist entry for listings and search results
func EntryEmbed(e *models.BlacklistEntry, index, total int) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "ID de usuario", Value: fmt.Sprintf("`%s`", e.UserID), Inline: true},
		{Name: "📜 Razón", Value: fmt.Sprintf("*%s*", e.Reason)},
		{Name: "🔗 Pruebas", Value: fmt.Sprintf("[Click aquí](%s)", e.ProofLink)},
	}
	if e.FolderID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "ID de carpeta", Value: fmt.Sprintf("`%s`", e.FolderID), Inline: true})
	}
	if len(e.Aliases) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Alias", Value: strings.Join(e.Aliases, ", "), Inline: true})
	}
	footer := footerText
	if total > 0 {
		footer = fmt.Sprintf("%s | Resultado %d de %d", footerText, index+1, total)
	}
	return &discordgo.MessageEmbed{
		Title:       e.Username,
		Description: "Información detallada del usuario:",
		Color:       0x9B59B6,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// NotificationMessage renders the public announcement of an approved entry
func NotificationMessage(e *models.BlacklistEntry) *platform.Message {
	embed := EntryEmbed(e, 0, 0)
	embed.Title = fmt.Sprintf("¡%s ha sido añadido a la blacklist!", e.Username)
	embed.Description = "Información detallada de la blacklist:"
	return &platform.Message{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Ver imágenes", Style: discordgo.LinkButton, URL: e.ProofLink},
				discordgo.Button{Label: "Ver imágenes directo", Style: discordgo.SecondaryButton, CustomID: CustomID(ViewImagesPrefix, e.FolderID)},
			}},
		},
	}
}

// SyncNotificationMessage renders the announcement of an imported member
func SyncNotificationMessage(e *models.BlacklistEntry, user *platform.User) *platform.Message {
	embed := EntryEmbed(e, 0, 0)
	if user != nil && !user.CreatedAt.IsZero() {
		fields := []*discordgo.MessageEmbedField{
			embed.Fields[0],
			{Name: "Creado", Value: fmt.Sprintf("<t:%d:R>", user.CreatedAt.Unix()), Inline: true},
		}
		embed.Fields = append(fields, embed.Fields[1:]...)
	}
	return &platform.Message{Embeds: []*discordgo.MessageEmbed{embed}}
}

// ImageEmbeds renders up to ten evidence images
func ImageEmbeds(st storage.Storage, files []storage.FileMeta) []*discordgo.MessageEmbed {
	if len(files) > 10 {
		files = files[:10]
	}
	embeds := make([]*discordgo.MessageEmbed, 0, len(files))
	for i, f := range files {
		title := "Imagen de blacklist"
		footer := footerText
		if len(files) > 1 {
			title = fmt.Sprintf("Imagen de blacklist %d/%d", i+1, len(files))
			footer = fmt.Sprintf("%s | Imagen %d de %d", footerText, i+1, len(files))
		}
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:     title,
			Color:     0x9B59B6,
			Image:     &discordgo.MessageEmbedImage{URL: st.DirectImageURL(f.ID)},
			Footer:    &discordgo.MessageEmbedFooter{Text: footer},
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return embeds
}
