package coach

import (
	"context"
	"fmt"
	"strings"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/profile"
	"cyclecoach/internal/service"

	"github.com/rs/zerolog"
)

// maxHistory bounds the conversation forwarded to the model
const maxHistory = 20

// Completer produces the assistant's next message
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Reply is the coach's answer
type Reply struct {
	Text string        `json:"text"`
	Tier analysis.Tier `json:"tier"`
	// Deterministic is true when the answer did not come from the model
	Deterministic bool `json:"deterministic"`
}

// Coach grounds chat replies in the rider's current training state
type Coach struct {
	llm    Completer
	logger zerolog.Logger
}

// New creates a coach backed by llm
func New(llm Completer, logger zerolog.Logger) *Coach {
	return &Coach{llm: llm, logger: logger}
}

// Reply answers the conversation. An overtrained rider gets the rest
// narrative without consulting the model.
func (c *Coach) Reply(ctx context.Context, snap *service.Snapshot, p *profile.Profile, messages []Message) (*Reply, error) {
	tier := snap.Tier()
	if tier == analysis.TierOvertraining {
		c.logger.Info().Str("user_id", snap.UserID).Msg("overtraining, replying with rest guidance")
		return &Reply{Text: snap.Assessment.Narrative, Tier: tier, Deterministic: true}, nil
	}

	if len(messages) > maxHistory {
		messages = messages[len(messages)-maxHistory:]
	}
	conversation := make([]Message, 0, len(messages)+1)
	conversation = append(conversation, Message{Role: RoleSystem, Content: SystemPrompt(snap, p)})
	for _, m := range messages {
		if m.Role == RoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		conversation = append(conversation, m)
	}

	text, err := c.llm.Complete(ctx, conversation)
	if err != nil {
		return nil, fmt.Errorf("coach reply: %w", err)
	}
	return &Reply{Text: text, Tier: tier}, nil
}

// SystemPrompt describes the rider and their load for the model
func SystemPrompt(snap *service.Snapshot, p *profile.Profile) string {
	var b strings.Builder

	b.WriteString("You are a cycling coach. Ground every answer in the rider data below ")
	b.WriteString("and keep recommendations consistent with the current training state.\n\n")

	b.WriteString("Rider profile:\n")
	b.WriteString(p.Summary())
	b.WriteString("\n\n")

	f := snap.Fitness
	fmt.Fprintf(&b, "FTP: %d W (%s)\n", snap.FTP.Watts, snap.FTP.Source)
	fmt.Fprintf(&b, "Fitness (CTL): %.0f\nFatigue (ATL): %.0f\nForm (TSB): %.0f\n", f.CTL, f.ATL, f.TSB)
	fmt.Fprintf(&b, "Training state: %s\n", snap.Tier().Label())
	if snap.Assessment.Narrative != "" {
		fmt.Fprintf(&b, "Assessment: %s\n", snap.Assessment.Narrative)
	}

	if len(snap.Recent) > 0 {
		b.WriteString("\nRecent rides (newest first):\n")
		for _, r := range snap.Recent {
			fmt.Fprintf(&b, "- %s %s: %.1f km, %d min, TSS %d",
				r.StartDate.Format("2006-01-02"), r.Type, r.DistanceKm, r.MovingTime/60, r.TSS)
			if r.Power > 0 {
				fmt.Fprintf(&b, ", %.0f W", r.Power)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\nNo rides in the analysis window.\n")
	}

	if snap.Tier() == analysis.TierHighFatigue {
		b.WriteString("\nThe rider is carrying high fatigue: favour recovery over intensity.\n")
	}
	return b.String()
}
