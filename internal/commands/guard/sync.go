package guard

import (
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
)

func (h *handlers) createSyncCommand() *discord.Command {
	return discord.NewCommand(
		"sync",
		"Sincroniza los usuarios nuevos del servidor objetivo",
		"guard",
		func(ctx *discord.CommandContext) error {
			if h.Members == nil {
				return ctx.EditReply("❌ No hay ninguna fuente de miembros configurada.")
			}
			report, err := h.Workflow.Sync(ctx.Context, ctx.User().ID, h.Members)
			if err != nil {
				return err
			}
			return ctx.EditReply(syncSummary(report))
		},
	).Whitelisted().WithDefer(true)
}

func syncSummary(r *blacklist.SyncReport) string {
	if r.Found == 0 {
		return "No se encontraron miembros nuevos para procesar."
	}
	msg := fmt.Sprintf("🔄 Sincronización completada\n"+
		"• Usuarios encontrados: %d\n"+
		"• Ya en la blacklist: %d\n"+
		"• Procesados: %d\n"+
		"• Servidores: %d (%d intentos de ban)\n",
		r.Found, r.Skipped, r.Processed, r.Guilds, r.Attempts)
	return msg + banSummary("Resultados del ban", r.Report)
}
