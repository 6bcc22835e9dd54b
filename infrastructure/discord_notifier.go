package infrastructure

import (
	"context"
	"fmt"
	"time"

	"lendledger/domain/entities"
	"lendledger/domain/interfaces"
	"lendledger/domain/utils"
	"lendledger/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	ColorPrimary = 0x5865F2 // Discord blurple
	ColorWarning = 0xFEE75C // Yellow
)

// EmbedSender is the subset of a discordgo session used to post embeds
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type discordNotifier struct {
	sender    EmbedSender
	channelID string
}

// NewDiscordNotifier creates a notifier posting to one channel
func NewDiscordNotifier(sender EmbedSender, channelID string) interfaces.Notifier {
	return &discordNotifier{sender: sender, channelID: channelID}
}

// NotifyAccrual posts a summary embed for one reconciled token
func (n *discordNotifier) NotifyAccrual(ctx context.Context, address string, summary entities.TokenSummary, issueCount int) error {
	embed := BuildAccrualEmbed(address, summary, issueCount)
	if _, err := n.sender.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send accrual embed: %w", err)
	}
	return nil
}

// SubscribeNotifier posts every completed accrual run through the notifier
func SubscribeNotifier(bus *events.Bus, notifier interfaces.Notifier) {
	bus.Subscribe(events.EventTypeAccrualCompleted, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.AccrualCompletedEvent)
		if !ok {
			return
		}
		if err := notifier.NotifyAccrual(ctx, e.Address, e.Summary, e.IssueCount); err != nil {
			log.WithFields(log.Fields{
				"runID":   e.RunID,
				"address": e.Address,
				"token":   e.Summary.Symbol,
				"error":   err,
			}).Error("Failed to post accrual notification")
		}
	})
}

// BuildAccrualEmbed creates the accrual summary embed
func BuildAccrualEmbed(address string, summary entities.TokenSummary, issueCount int) *discordgo.MessageEmbed {
	flagged := summary.Debt.FlaggedDays + summary.Supply.FlaggedDays
	color := ColorPrimary
	if flagged > 0 || issueCount > 0 {
		color = ColorWarning
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📒 %s accrual for %s", summary.Symbol, utils.ShortAddress(address)),
		Description: fmt.Sprintf("`%s`", address),
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      []*discordgo.MessageEmbedField{},
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name: "🏦 Debt",
		Value: fmt.Sprintf("Balance: **%s**\nInterest: **%s**\nDays: **%d**",
			utils.FormatAmount(summary.Debt.CurrentBalance),
			utils.FormatAmount(summary.Debt.TotalInterest),
			summary.Debt.Days),
		Inline: true,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name: "💰 Supply",
		Value: fmt.Sprintf("Balance: **%s**\nInterest: **%s**\nDays: **%d**",
			utils.FormatAmount(summary.Supply.CurrentBalance),
			utils.FormatAmount(summary.Supply.TotalInterest),
			summary.Supply.Days),
		Inline: true,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name: "📊 Net",
		Value: fmt.Sprintf("Interest: **%s**\nPosition: **%s**",
			utils.FormatAmount(summary.NetInterest),
			utils.FormatAmount(summary.NetPosition)),
		Inline: false,
	})

	if flagged > 0 || issueCount > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "⚠️ Attention",
			Value:  fmt.Sprintf("Flagged days: **%d**\nIssues: **%d**", flagged, issueCount),
			Inline: false,
		})
	}

	return embed
}
