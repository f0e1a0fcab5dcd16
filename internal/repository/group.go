package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/tidings-app/tidings/internal/database"
	"github.com/tidings-app/tidings/internal/models"
)

type GroupRepository struct {
	db *database.DB
}

func NewGroupRepository(db *database.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(ctx context.Context, g *models.Group) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Channels == nil {
		g.Channels = []string{}
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO groups (group_id, name, timezone, channels)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		g.ID, g.Name, g.Timezone, g.Channels,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
}

// GetByID loads a group together with its contacts.
func (r *GroupRepository) GetByID(ctx context.Context, groupID string) (*models.Group, error) {
	g := &models.Group{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT group_id, name, timezone, channels, created_at, updated_at
		 FROM groups WHERE group_id = $1`,
		groupID,
	).Scan(&g.ID, &g.Name, &g.Timezone, &g.Channels, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}

	contacts, err := r.ListContacts(ctx, groupID)
	if err != nil {
		return nil, err
	}
	g.Contacts = contacts
	return g, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]*models.Group, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT group_id, name, timezone, channels, created_at, updated_at
		 FROM groups ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Timezone, &g.Channels, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepository) Update(ctx context.Context, g *models.Group) error {
	if g.Channels == nil {
		g.Channels = []string{}
	}
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE groups SET name = $1, timezone = $2, channels = $3, updated_at = NOW()
		 WHERE group_id = $4`,
		g.Name, g.Timezone, g.Channels, g.ID,
	)
	return err
}

// Delete removes the group; schedules, contacts, and dispatch history cascade.
func (r *GroupRepository) Delete(ctx context.Context, groupID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM groups WHERE group_id = $1`,
		groupID,
	)
	return err
}

func (r *GroupRepository) AddContact(ctx context.Context, c *models.Contact) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO contacts (contact_id, group_id, name, phone, email, telegram_chat_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.GroupID, c.Name, c.Phone, c.Email, c.TelegramChatID,
	)
	return err
}

func (r *GroupRepository) RemoveContact(ctx context.Context, contactID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM contacts WHERE contact_id = $1`,
		contactID,
	)
	return err
}

func (r *GroupRepository) ListContacts(ctx context.Context, groupID string) ([]models.Contact, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT contact_id, group_id, name, phone, email, telegram_chat_id
		 FROM contacts WHERE group_id = $1 ORDER BY name ASC`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.GroupID, &c.Name, &c.Phone, &c.Email, &c.TelegramChatID); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
