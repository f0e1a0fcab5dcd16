// Package delivery fans a composed message out to a group's contacts over
// named channels and reports a per-recipient per-channel status.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tidings-app/tidings/internal/models"
)

// Channel delivers one message to one contact.
type Channel interface {
	Name() string
	Send(ctx context.Context, contact models.Contact, text string) error
}

// ErrNoAddress tells the registry a contact carries no address for the
// channel. It maps to not_sent rather than failed.
var ErrNoAddress = errors.New("contact has no address for this channel")

// Registry holds the configured channels and performs the fan-out.
type Registry struct {
	channels map[string]Channel
	log      zerolog.Logger
}

func NewRegistry(log zerolog.Logger, channels ...Channel) *Registry {
	r := &Registry{channels: make(map[string]Channel, len(channels)), log: log}
	for _, ch := range channels {
		r.channels[ch.Name()] = ch
	}
	return r
}

// Channels returns the names of every registered channel, sorted.
func (r *Registry) Channels() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send delivers text to every contact of the group over each requested
// channel. One status is reported per (contact, channel) pair: sent on
// success, not_sent when the channel is unknown or the contact has no
// address, failed with the error detail otherwise. A failure never stops the
// remaining sends.
func (r *Registry) Send(ctx context.Context, group *models.Group, text string, channelNames []string) []models.RecipientStatus {
	statuses := make([]models.RecipientStatus, 0, len(channelNames)*len(group.Contacts))
	for _, name := range channelNames {
		ch, ok := r.channels[name]
		for _, contact := range group.Contacts {
			st := models.RecipientStatus{
				ContactID:   contact.ID,
				ContactName: contact.Name,
				Channel:     name,
			}
			switch {
			case !ok:
				st.Status = models.StatusNotSent
				st.Error = fmt.Sprintf("channel %q is not configured", name)
			default:
				st = r.sendOne(ctx, ch, contact, text, st)
			}
			statuses = append(statuses, st)
		}
	}
	return statuses
}

func (r *Registry) sendOne(ctx context.Context, ch Channel, contact models.Contact, text string, st models.RecipientStatus) models.RecipientStatus {
	err := ch.Send(ctx, contact, text)
	switch {
	case err == nil:
		st.Status = models.StatusSent
	case errors.Is(err, ErrNoAddress):
		st.Status = models.StatusNotSent
		st.Error = err.Error()
	default:
		st.Status = models.StatusFailed
		st.Error = err.Error()
		r.log.Warn().Err(err).
			Str("channel", ch.Name()).
			Str("contact_id", contact.ID).
			Msg("delivery failed")
	}
	return st
}
