package slack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// Event is a cohort event whose project channels are retired together.
type Event struct {
	ID       string    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Projects []Project `yaml:"projects" json:"projects"`
}

// Project is one team project inside an event. ChannelID is empty when the
// project never had a Slack channel.
type Project struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	ChannelID string `yaml:"slack_channel_id,omitempty" json:"slack_channel_id,omitempty"`
}

// DecodeEvent reads an event description in YAML (JSON is accepted too).
func DecodeEvent(r io.Reader) (Event, error) {
	var event Event
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if strings.TrimSpace(event.Name) == "" {
		return Event{}, errors.New("decode event: name is required")
	}
	return event, nil
}

// Conversations is the part of the Web API the archiver needs.
type Conversations interface {
	ConversationInfo(ctx context.Context, channelID string) (*Channel, error)
	RenameConversation(ctx context.Context, channelID, name string) (*Channel, error)
	ArchiveConversation(ctx context.Context, channelID string) error
}

// ArchiveResult summarizes one archive run.
type ArchiveResult struct {
	Archived []string
	Skipped  []string
	Failed   []string
}

// Archiver renames and archives an event's project channels.
type Archiver struct {
	api    Conversations
	logger *slog.Logger
}

// NewArchiver creates an Archiver over api.
func NewArchiver(api Conversations, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{api: api, logger: logger.With("component", "slack_archiver")}
}

// ArchiveSuffix derives the channel suffix for an event: the lowercased event
// name with every run of non-alphanumerics collapsed to a single "-".
func ArchiveSuffix(eventName string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(eventName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ArchiveEventChannels renames each project channel to
// "{name_normalized}-{suffix}" and archives it. A failing project is logged
// and skipped; the remaining projects are still processed and every failure
// is returned joined.
func (a *Archiver) ArchiveEventChannels(ctx context.Context, event Event) (ArchiveResult, error) {
	var (
		result ArchiveResult
		errs   []error
	)

	suffix := ArchiveSuffix(event.Name)
	if suffix == "" {
		return result, fmt.Errorf("event %q: cannot derive archive suffix from name", event.ID)
	}

	for _, project := range event.Projects {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if project.ChannelID == "" {
			result.Skipped = append(result.Skipped, project.ID)
			continue
		}

		if err := a.archiveProject(ctx, project, suffix); err != nil {
			a.logger.Warn("project channel not archived",
				"event_id", event.ID,
				"project_id", project.ID,
				"channel", project.ChannelID,
				"error", err,
			)
			result.Failed = append(result.Failed, project.ID)
			errs = append(errs, fmt.Errorf("project %s: %w", project.ID, err))
			continue
		}
		result.Archived = append(result.Archived, project.ID)
	}

	a.logger.Info("event channels processed",
		"event_id", event.ID,
		"archived", len(result.Archived),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)

	return result, errors.Join(errs...)
}

func (a *Archiver) archiveProject(ctx context.Context, project Project, suffix string) error {
	channel, err := a.api.ConversationInfo(ctx, project.ChannelID)
	if err != nil {
		return fmt.Errorf("lookup channel: %w", err)
	}
	if channel.NameNormalized == "" {
		return fmt.Errorf("channel %s has no normalized name", project.ChannelID)
	}

	archivedName := channel.NameNormalized + "-" + suffix
	a.logger.Debug("archiving channel", "from", channel.NameNormalized, "to", archivedName)

	if _, err := a.api.RenameConversation(ctx, project.ChannelID, archivedName); err != nil {
		return fmt.Errorf("rename channel: %w", err)
	}
	if err := a.api.ArchiveConversation(ctx, project.ChannelID); err != nil {
		return fmt.Errorf("archive channel: %w", err)
	}
	return nil
}
