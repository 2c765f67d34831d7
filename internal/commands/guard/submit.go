package guard

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/storage"
	"github.com/bwmarrin/discordgo"
)

var evidenceOptions = []string{"file1", "file2", "file3", "file4", "file5"}

func (h *handlers) createBlacklistCommand() *discord.Command {
	opts := []*discordgo.ApplicationCommandOption{
		userOption("user", "Usuario a añadir a la blacklist", true),
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Razón de la blacklist",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionAttachment,
			Name:        evidenceOptions[0],
			Description: "Imagen de prueba",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "msn",
			Description: "¿Solo MSN? No se anuncia públicamente",
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "aliases",
			Description: "IDs de cuentas alternativas, separadas por comas",
		},
	}
	for _, name := range evidenceOptions[1:] {
		opts = append(opts, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionAttachment,
			Name:        name,
			Description: "Imagen de prueba adicional",
		})
	}

	return discord.NewCommand(
		"blacklist",
		"Solicita añadir un usuario a la blacklist",
		"guard",
		h.blacklistHandler,
	).WithOptions(opts...).Whitelisted().WithDefer(true)
}

func (h *handlers) blacklistHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.EditReply("❌ Debes especificar un usuario.")
	}

	var files []storage.Attachment
	for _, name := range evidenceOptions {
		if att := ctx.GetAttachmentOption(name); att != nil {
			files = append(files, storage.Attachment{URL: att.URL, Filename: att.Filename})
		}
	}

	folderID, err := h.Storage.CreateFolder(ctx.Context, "blacklist-"+user.Username)
	if err != nil {
		return errors.External("crear carpeta de pruebas", err)
	}
	upload, err := storage.CollectEvidence(ctx.Context, h.HTTP, h.Storage, folderID, files)
	if err != nil {
		return err
	}

	sub := h.Workflow.Submit(blacklist.SubmitRequest{
		UserID:      user.ID,
		Username:    user.Username,
		Reason:      ctx.GetStringOption("reason"),
		ProofLink:   h.Storage.FolderLink(folderID),
		FolderID:    folderID,
		MSN:         ctx.GetBoolOption("msn"),
		Aliases:     ctx.GetStringOption("aliases"),
		RequestedBy: ctx.User().ID,
	})

	if err := h.Workflow.Track(ctx.Context, sub); err != nil {
		return err
	}

	msgID, err := h.Gateway.SendMessage(ctx.Context, h.ApprovalChannelID, blacklist.RequestMessage(sub))
	if err != nil {
		if dErr := h.Workflow.Discard(ctx.Context, sub.ID); dErr != nil {
			logger.Warn(fmt.Sprintf("No se pudo descartar la solicitud %s: %v", sub.ID, dErr), "CMD-Blacklist")
		}
		if errors.Is(err, errors.ErrNotFound) {
			return ctx.EditReply("❌ No se encontró el canal de aprobación.")
		}
		return err
	}
	if err := h.Workflow.AttachMessage(ctx.Context, sub.ID, h.ApprovalChannelID, msgID); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo asociar el mensaje a la solicitud %s: %v", sub.ID, err), "CMD-Blacklist")
	}

	logger.Info(fmt.Sprintf("Solicitud %s para %s enviada por %s", sub.ID, user.ID, sub.RequestedBy), "CMD-Blacklist")
	return ctx.EditReply(submittedMessage(upload))
}

func submittedMessage(upload *storage.UploadResult) string {
	msg := fmt.Sprintf("✅ ¡Solicitud enviada para aprobación! (%d imágenes subidas)", len(upload.Uploaded))
	if len(upload.Skipped) > 0 {
		msg += fmt.Sprintf("\n⚠️ Archivos omitidos: %s", strings.Join(upload.Skipped, ", "))
	}
	return msg
}
