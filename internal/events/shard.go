package events

import (
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// RegisterShardEvents logs gateway disconnects and resumes
func RegisterShardEvents(client *discord.ExtendedClient) {
	client.EventHandler.RegisterEvent(onShardDisconnect)
	client.EventHandler.RegisterEvent(onShardResumed)
}

func onShardDisconnect(s *discordgo.Session, _ *discordgo.Disconnect) {
	logger.Warn(fmt.Sprintf("🔌 Shard %d desconectado.", s.ShardID), "Shard")
}

func onShardResumed(s *discordgo.Session, _ *discordgo.Resumed) {
	logger.Success(fmt.Sprintf("✅ Shard %d reanudado.", s.ShardID), "Shard")
}
