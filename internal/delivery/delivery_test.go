package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tidings-app/tidings/internal/models"
)

type fakeChannel struct {
	name string
	fail map[string]error
	sent []string
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, contact models.Contact, text string) error {
	if err, ok := f.fail[contact.ID]; ok {
		return err
	}
	f.sent = append(f.sent, contact.ID+":"+text)
	return nil
}

func testGroup() *models.Group {
	return &models.Group{
		ID:   "grp-1",
		Name: "Family",
		Contacts: []models.Contact{
			{ID: "c-1", Name: "Ana"},
			{ID: "c-2", Name: "Ben"},
		},
	}
}

func TestSendAllDelivered(t *testing.T) {
	ch := &fakeChannel{name: "telegram"}
	reg := NewRegistry(zerolog.Nop(), ch)

	statuses := reg.Send(context.Background(), testGroup(), "happy new year", []string{"telegram"})
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	for _, st := range statuses {
		if st.Status != models.StatusSent {
			t.Fatalf("contact %s status = %s, want sent", st.ContactID, st.Status)
		}
		if st.Error != "" {
			t.Fatalf("contact %s carries error %q, want none", st.ContactID, st.Error)
		}
	}
	if len(ch.sent) != 2 || !strings.HasSuffix(ch.sent[0], "happy new year") {
		t.Fatalf("channel saw %v, want both contacts with the message", ch.sent)
	}
}

func TestSendFailureIsIsolated(t *testing.T) {
	ch := &fakeChannel{
		name: "telegram",
		fail: map[string]error{"c-1": errors.New("chat not found")},
	}
	reg := NewRegistry(zerolog.Nop(), ch)

	statuses := reg.Send(context.Background(), testGroup(), "hi", []string{"telegram"})
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	if statuses[0].Status != models.StatusFailed || statuses[0].Error != "chat not found" {
		t.Fatalf("first status = (%s, %q), want (failed, chat not found)", statuses[0].Status, statuses[0].Error)
	}
	if statuses[1].Status != models.StatusSent {
		t.Fatalf("second status = %s, want sent despite the first failing", statuses[1].Status)
	}
}

func TestSendMissingAddressIsNotSent(t *testing.T) {
	ch := &fakeChannel{
		name: "telegram",
		fail: map[string]error{"c-2": ErrNoAddress},
	}
	reg := NewRegistry(zerolog.Nop(), ch)

	statuses := reg.Send(context.Background(), testGroup(), "hi", []string{"telegram"})
	if statuses[1].Status != models.StatusNotSent {
		t.Fatalf("status without address = %s, want not_sent", statuses[1].Status)
	}
}

func TestSendUnknownChannel(t *testing.T) {
	reg := NewRegistry(zerolog.Nop(), &fakeChannel{name: "telegram"})

	statuses := reg.Send(context.Background(), testGroup(), "hi", []string{"carrier-pigeon"})
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	for _, st := range statuses {
		if st.Status != models.StatusNotSent {
			t.Fatalf("unknown channel status = %s, want not_sent", st.Status)
		}
		if !strings.Contains(st.Error, "not configured") {
			t.Fatalf("unknown channel error = %q, want a not-configured note", st.Error)
		}
	}
}

func TestChannelsSorted(t *testing.T) {
	reg := NewRegistry(zerolog.Nop(), &fakeChannel{name: "telegram"}, &fakeChannel{name: "email"})
	got := reg.Channels()
	if len(got) != 2 || got[0] != "email" || got[1] != "telegram" {
		t.Fatalf("Channels() = %v, want [email telegram]", got)
	}
}

func TestSendMultipleChannels(t *testing.T) {
	tg := &fakeChannel{name: "telegram"}
	mail := &fakeChannel{name: "email"}
	reg := NewRegistry(zerolog.Nop(), tg, mail)

	statuses := reg.Send(context.Background(), testGroup(), "hi", []string{"telegram", "email"})
	if len(statuses) != 4 {
		t.Fatalf("got %d statuses, want 4 (2 contacts x 2 channels)", len(statuses))
	}
	if statuses[0].Channel != "telegram" || statuses[2].Channel != "email" {
		t.Fatalf("channel order = %s, %s; want telegram then email", statuses[0].Channel, statuses[2].Channel)
	}
}
