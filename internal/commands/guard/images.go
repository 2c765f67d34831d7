package guard

import (
	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/storage"
)

func (h *handlers) viewImagesHandler(ctx *discord.CommandContext, folderID string) error {
	if folderID == "" {
		return ctx.ReplyEphemeral("No se encontraron imágenes en la carpeta.")
	}
	if err := ctx.Defer(true); err != nil {
		return err
	}

	load := func() ([]storage.FileMeta, error) {
		files, err := h.Storage.ListFiles(ctx.Context, folderID, true)
		if err != nil {
			return nil, errors.External("listar imágenes", err)
		}
		return files, nil
	}
	var (
		files []storage.FileMeta
		err   error
	)
	if h.Images != nil {
		files, err = h.Images.GetOrLoad(folderID, load)
	} else {
		files, err = load()
	}
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ctx.EditReply("No se encontraron imágenes en la carpeta.")
	}
	return ctx.EditReplyEmbed(blacklist.ImageEmbeds(h.Storage, files)...)
}
